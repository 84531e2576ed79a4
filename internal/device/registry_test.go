package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.json")
	reg := NewRegistry(NewJSONFileRepository(path))
	require.NoError(t, reg.RefreshCache(context.Background()))
	return reg, path
}

func robot(name string) *Record {
	return &Record{Name: name, Type: TypeRobot, IP: "127.0.0.1", Port: 10001}
}

func TestRegistry_AddAndGet(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))

	got, err := reg.GetDevice(ctx, "arm1")
	require.NoError(t, err)
	assert.Equal(t, TypeRobot, got.Type)
	assert.Equal(t, 1, reg.GetDeviceCount())
}

func TestRegistry_AddDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))
	err := reg.AddDevice(ctx, robot("arm1"))
	assert.ErrorIs(t, err, ErrDeviceExists)
	assert.Equal(t, 1, reg.GetDeviceCount())
}

func TestRegistry_AddReservedName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.AddDevice(context.Background(), robot("running"))
	assert.ErrorIs(t, err, ErrReservedName)
	assert.Zero(t, reg.GetDeviceCount())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.GetDevice(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRegistry_GetSeesExternalEdit(t *testing.T) {
	reg, path := newTestRegistry(t)

	// The document is edited behind the registry's back.
	doc := `{"Clients":[{"Name":"late","Type":"PLC","Ip":"10.0.0.9","Port":5007}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	got, err := reg.GetDevice(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, TypePLC, got.Type)
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))

	snap, err := reg.GetDevice(ctx, "arm1")
	require.NoError(t, err)
	snap.Port = 1

	again, err := reg.GetDevice(ctx, "arm1")
	require.NoError(t, err)
	assert.Equal(t, 10001, again.Port)
}

func TestRegistry_RemoveDevice(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))
	require.NoError(t, reg.AddDevice(ctx, robot("arm2")))
	require.NoError(t, reg.RemoveDevice(ctx, "arm1"))

	list := reg.ListDevices(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "arm2", list[0].Name)

	assert.ErrorIs(t, reg.RemoveDevice(ctx, "arm1"), ErrDeviceNotFound)
}

func TestRegistry_UserNodes(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))

	node := UserNode{Name: "Speed", Parent: "Status"}
	require.NoError(t, reg.AddUserNode(ctx, "arm1", node))

	// Same name under another parent is a different node.
	require.NoError(t, reg.AddUserNode(ctx, "arm1", UserNode{Name: "Speed", Parent: "Override"}))

	err := reg.AddUserNode(ctx, "arm1", node)
	assert.ErrorIs(t, err, ErrUserNodeExists)
	assert.Contains(t, err.Error(), "'Speed'")

	assert.ErrorIs(t, reg.AddUserNode(ctx, "ghost", node), ErrDeviceNotFound)
	assert.ErrorIs(t, reg.AddUserNode(ctx, "arm1", UserNode{Name: "x"}), ErrInvalidUserNode)

	require.NoError(t, reg.RemoveUserNode(ctx, "arm1", node))
	assert.ErrorIs(t, reg.RemoveUserNode(ctx, "arm1", node), ErrUserNodeNotFound)

	got, err := reg.GetDevice(ctx, "arm1")
	require.NoError(t, err)
	assert.Equal(t, []UserNode{{Name: "Speed", Parent: "Override"}}, got.UserNodes)
}

func TestRegistry_AddDeviceWithDuplicateUserNodes(t *testing.T) {
	reg, _ := newTestRegistry(t)

	rec := robot("arm1")
	rec.UserNodes = []UserNode{{Name: "a", Parent: "p"}, {Name: "a", Parent: "p"}}
	assert.ErrorIs(t, reg.AddDevice(context.Background(), rec), ErrUserNodeExists)
}

func TestRegistry_ConcurrentAddsLoseNothing(t *testing.T) {
	reg, path := newTestRegistry(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.AddDevice(ctx, robot(fmt.Sprintf("arm%02d", i))))
		}()
	}
	wg.Wait()

	assert.Equal(t, n, reg.GetDeviceCount())

	// A fresh registry over the same file sees every write.
	fresh := NewRegistry(NewJSONFileRepository(path))
	require.NoError(t, fresh.RefreshCache(ctx))
	assert.Equal(t, n, fresh.GetDeviceCount())
}

func TestRegistry_Stats(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddDevice(ctx, robot("arm1")))
	require.NoError(t, reg.AddDevice(ctx, &Record{Name: "line", Type: TypePLC, IP: "10.0.0.3", Port: 5007,
		UserNodes: []UserNode{{Name: "D100", Parent: "Data"}}}))

	stats := reg.GetStats()
	assert.Equal(t, 2, stats.TotalDevices)
	assert.Equal(t, 1, stats.ByType[TypeRobot])
	assert.Equal(t, 1, stats.ByType[TypePLC])
	assert.Equal(t, 1, stats.UserNodes)
}
