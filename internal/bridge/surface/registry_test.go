package surface

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSurface struct {
	label string
	kind  Kind
	err   error

	mu      sync.Mutex
	scripts []string
	closed  bool
}

func (f *fakeSurface) Label() string { return f.label }
func (f *fakeSurface) Kind() Kind    { return f.kind }

func (f *fakeSurface) Eval(_ context.Context, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scripts = append(f.scripts, script)
	return nil
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestLookupPrefersContentSurface(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)
	window := &fakeSurface{label: "main", kind: KindWindow}
	content := &fakeSurface{label: "main", kind: KindContent}

	reg.Attach(window)
	got, err := reg.Lookup("main")
	require.NoError(t, err)
	assert.Same(t, window, got)

	reg.Attach(content)
	got, err = reg.Lookup("main")
	require.NoError(t, err)
	assert.Same(t, content, got)
}

func TestInjectUnknownLabel(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)

	err := reg.Inject(context.Background(), "ghost", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSurfaceNotFound)
	assert.Equal(t, "Webview/WebviewWindow 'ghost' not found.", err.Error())
}

func TestInjectDeliversScript(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)
	s := &fakeSurface{label: "tab-1", kind: KindContent}
	reg.Attach(s)

	require.NoError(t, reg.Inject(context.Background(), "tab-1", "document.title"))
	assert.Equal(t, []string{"document.title"}, s.scripts)
}

func TestInjectPropagatesSurfaceError(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)
	boom := errors.New("socket gone")
	reg.Attach(&fakeSurface{label: "tab-1", kind: KindContent, err: boom})

	assert.ErrorIs(t, reg.Inject(context.Background(), "tab-1", "1"), boom)
}

func TestAttachReplacesAndClosesOlder(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)
	first := &fakeSurface{label: "tab-1", kind: KindContent}
	second := &fakeSurface{label: "tab-1", kind: KindContent}

	reg.Attach(first)
	reg.Attach(second)

	assert.True(t, first.closed)
	assert.False(t, second.closed)

	// The stale connection detaching must not remove its replacement
	assert.False(t, reg.Detach(first))
	got, err := reg.Lookup("tab-1")
	require.NoError(t, err)
	assert.Same(t, second, got)

	assert.True(t, reg.Detach(second))
	_, err = reg.Lookup("tab-1")
	assert.ErrorIs(t, err, ErrSurfaceNotFound)
}

func TestListAndObserver(t *testing.T) {
	counts := map[Kind]int{}
	reg := NewRegistry(zaptest.NewLogger(t), func(k Kind, n int) { counts[k] = n })

	reg.Attach(&fakeSurface{label: "b", kind: KindContent})
	reg.Attach(&fakeSurface{label: "a", kind: KindContent})
	reg.Attach(&fakeSurface{label: "main", kind: KindWindow})

	assert.Equal(t, []Info{
		{Label: "a", Kind: KindContent},
		{Label: "b", Kind: KindContent},
		{Label: "main", Kind: KindWindow},
	}, reg.List())
	assert.Equal(t, 2, counts[KindContent])
	assert.Equal(t, 1, counts[KindWindow])
}

func TestCloseAll(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), nil)
	a := &fakeSurface{label: "a", kind: KindContent}
	w := &fakeSurface{label: "w", kind: KindWindow}
	reg.Attach(a)
	reg.Attach(w)

	reg.CloseAll()

	assert.True(t, a.closed)
	assert.True(t, w.closed)
	assert.Empty(t, reg.List())
}
