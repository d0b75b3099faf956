package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nferreyra/cerbero/internal/cerbero/service"
	"github.com/nferreyra/cerbero/internal/cerbero/store/memory"
	"github.com/nferreyra/cerbero/internal/logging"
)

func TestOperatorResolver_ConfiguredIDWins(t *testing.T) {
	st := memory.NewOperatorStore(5)
	r := service.NewOperatorResolver(st, 42, logging.NewNopLogger())

	assert.Equal(t, int64(42), r.Resolve(context.Background()))
}

func TestOperatorResolver_CachesFirstResolution(t *testing.T) {
	st := memory.NewOperatorStore(5)
	r := service.NewOperatorResolver(st, 0, logging.NewNopLogger())

	assert.Equal(t, int64(5), r.Resolve(context.Background()))

	// Resolution is startup-once: later changes to the users table do not
	// re-attribute scans mid-process.
	st.SetOperator(9)
	assert.Equal(t, int64(5), r.Resolve(context.Background()))
}

func TestOperatorResolver_NoUsers_ZeroNotError(t *testing.T) {
	st := memory.NewOperatorStore(0)
	r := service.NewOperatorResolver(st, 0, logging.NewNopLogger())

	assert.Equal(t, int64(0), r.Resolve(context.Background()))

	// Zero is not cached; a user created later starts being attributed.
	st.SetOperator(3)
	assert.Equal(t, int64(3), r.Resolve(context.Background()))
}
