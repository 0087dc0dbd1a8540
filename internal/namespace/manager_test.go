package namespace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	ns, err := Resolve("requested", "env-ns")
	require.NoError(t, err)
	assert.Equal(t, "requested", ns)

	ns, err = Resolve("", "env-ns")
	require.NoError(t, err)
	assert.Equal(t, "env-ns", ns)

	ns, err = Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultNamespace, ns)
}

func TestResolveRejectsReservedName(t *testing.T) {
	_, err := Resolve("admin", "")
	require.Error(t, err)
}

func TestResolveRejectsInvalidPattern(t *testing.T) {
	_, err := Resolve("Has Spaces!", "")
	require.Error(t, err)
}

func TestManagerCreateListAndHandle(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, 4, true)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	names, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultNamespace}, names)

	ctx := context.Background()
	s, err := m.Handle(ctx, "project-a")
	require.NoError(t, err)
	assert.Equal(t, "project-a", s.Namespace)

	names, err = m.List()
	require.NoError(t, err)
	assert.Contains(t, names, "project-a")
	assert.Equal(t, DefaultNamespace, names[0])
}

func TestManagerAutoCreateDisabledFailsForUnknownNamespace(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, 4, false)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Handle(context.Background(), "never-created")
	require.Error(t, err)
}

func TestManagerHandleReusesCachedStore(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, 4, true)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx := context.Background()
	s1, err := m.Handle(ctx, "proj")
	require.NoError(t, err)
	s2, err := m.Handle(ctx, "proj")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestManagerDeleteRemovesNamespace(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, 4, true)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx := context.Background()
	_, err = m.Handle(ctx, "gone-soon")
	require.NoError(t, err)
	require.NoError(t, m.Delete("gone-soon"))
	assert.False(t, m.Exists("gone-soon"))
}
