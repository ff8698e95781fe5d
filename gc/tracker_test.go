package gc_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvet/scriptcore/anybox"
	"github.com/cvet/scriptcore/dict"
	"github.com/cvet/scriptcore/gc"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/registry"
	"github.com/cvet/scriptcore/utils"
)

type env struct {
	reg     *registry.Registry
	tracker *gc.Tracker
	anyH    host.TypeID
}

func setup(t *testing.T) *env {
	tr := gc.NewTracker(nil)
	reg := registry.New(registry.Options{Collector: tr})
	_, err := anybox.RegisterType(reg)
	require.NoError(t, err)
	require.NoError(t, dict.RegisterTemplate(reg))
	anyH, err := reg.TypeIDByDecl("any@")
	require.NoError(t, err)
	return &env{reg: reg, tracker: tr, anyH: anyH}
}

func TestSelfReferencingBox(t *testing.T) {
	e := setup(t)
	b := anybox.New(e.reg)
	b.Store(&b, e.anyH)
	assert.Equal(t, 2, b.GetRefCount())

	b.Release()
	assert.Equal(t, 1, b.GetRefCount())

	assert.Equal(t, 1, e.tracker.Collect())
	assert.Equal(t, 0, b.GetRefCount())
	assert.Equal(t, host.TypeVoid, b.TypeID())
	assert.Equal(t, 0, e.tracker.Len())
}

func TestHeldBoxSurvives(t *testing.T) {
	e := setup(t)
	outer := anybox.New(e.reg)
	inner := anybox.New(e.reg)
	inner.StoreInt(7)
	outer.Store(&inner, e.anyH)
	inner.Release()

	assert.Zero(t, e.tracker.Collect())
	assert.Equal(t, 1, inner.GetRefCount())

	var n int64
	var got *anybox.Box
	require.True(t, outer.Retrieve(&got, e.anyH))
	assert.True(t, got.RetrieveInt(&n))
	assert.Equal(t, int64(7), n)
	got.Release()

	outer.Release()
	assert.Equal(t, 0, inner.GetRefCount())
	assert.Zero(t, e.tracker.Collect())
	assert.Equal(t, 0, e.tracker.Len())
}

func TestBoxDictCycle(t *testing.T) {
	e := setup(t)
	dictID, err := e.reg.TypeIDByDecl("dict<int,any@>")
	require.NoError(t, err)
	ti := e.reg.TypeInfoByID(dictID)
	require.True(t, ti.Flags().Has(host.FlagGC))

	d, err := dict.New(ti)
	require.NoError(t, err)
	b := anybox.New(e.reg)
	key := int32(1)
	d.Set(&key, &b)
	b.Store(&d, dictID.Handle())
	assert.Equal(t, 2, d.GetRefCount())
	assert.Equal(t, 2, b.GetRefCount())
	assert.Equal(t, 2, e.tracker.Len())

	// still reachable from here
	assert.Zero(t, e.tracker.Collect())

	d.Release()
	b.Release()
	assert.Equal(t, 2, e.tracker.Collect())
	assert.Equal(t, 0, d.GetRefCount())
	assert.Equal(t, 0, b.GetRefCount())
	assert.Equal(t, 0, d.Size())
}

func TestContainerCollector(t *testing.T) {
	e := setup(t)
	b := anybox.New(e.reg)
	defer b.Release()
	cc := gc.NewContainerCollector(e.tracker)
	assert.Equal(t, 2, testutil.CollectAndCount(cc))
}

type passLog struct {
	utils.NopLogger
	msgs []string
	args [][]any
}

func (l *passLog) DebugCtx(ctx context.Context, msg string, args ...any) {
	l.msgs = append(l.msgs, msg)
	l.args = append(l.args, append(args, utils.DefaultArgs(ctx)...))
}

func TestCollectLogsContextArgs(t *testing.T) {
	log := &passLog{}
	tr := gc.NewTracker(log)
	reg := registry.New(registry.Options{Collector: tr})
	_, err := anybox.RegisterType(reg)
	require.NoError(t, err)
	anyH, err := reg.TypeIDByDecl("any@")
	require.NoError(t, err)

	ctx := utils.WithDefaultArgs(context.Background(), "registry", "r1")
	assert.Zero(t, tr.CollectCtx(ctx))
	assert.Empty(t, log.msgs)

	b := anybox.New(reg)
	b.Store(&b, anyH)
	b.Release()
	assert.Equal(t, 1, tr.CollectCtx(ctx))
	require.Equal(t, []string{"gc pass"}, log.msgs)
	assert.Equal(t, []any{"tracked", 0, "destroyed", 1, "registry", "r1"}, log.args[0])
}
