package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	boltKV, err := OpenBolt(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenBolt() error = %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]KV{
		"memory": NewMemory(),
		"bolt":   boltKV,
		"redis":  NewRedis(client),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			defer s.Close()

			got, err := s.Get(ctx, "missing")
			if err != nil || got != nil {
				t.Fatalf("Get(missing) = %q, %v; want nil, nil", got, err)
			}

			err = s.Update(ctx, "k", func(cur []byte) ([]byte, error) {
				if cur != nil {
					t.Errorf("current = %q, want nil", cur)
				}
				return []byte("v1"), nil
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			got, _ = s.Get(ctx, "k")
			if string(got) != "v1" {
				t.Errorf("Get(k) = %q, want v1", got)
			}

			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			got, _ = s.Get(ctx, "k")
			if got != nil {
				t.Errorf("Get(k) after delete = %q, want nil", got)
			}
		})
	}
}

func TestUpdateErrorLeavesValue(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	boom := errors.New("boom")

	s.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("keep"), nil })
	err := s.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("lost"), boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	got, _ := s.Get(ctx, "k")
	if string(got) != "keep" {
		t.Errorf("Get(k) = %q, want keep", got)
	}
}

func TestUpdateJSONIsSerialised(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := UpdateJSON(ctx, s, "list", func(v *[]int) error {
				*v = append(*v, i)
				return nil
			})
			if err != nil {
				t.Errorf("UpdateJSON() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	list, err := GetJSON[[]int](ctx, s, "list")
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(list) != 50 {
		t.Errorf("len(list) = %d, want 50", len(list))
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	s.Close()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, apperrors.ErrStoreClosed) {
		t.Errorf("Get() error = %v, want ErrStoreClosed", err)
	}
	err := s.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("x"), nil })
	if !errors.Is(err, apperrors.ErrStoreClosed) {
		t.Errorf("Update() error = %v, want ErrStoreClosed", err)
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	s, err := Open(BackendBolt, path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := UpdateJSON(ctx, s, KeyOfflineRides, func(v *map[string]string) error {
		*v = map[string]string{"r1": "requested"}
		return nil
	}); err != nil {
		t.Fatalf("UpdateJSON() error = %v", err)
	}
	s.Close()

	s, err = Open(BackendBolt, path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := GetJSON[map[string]string](ctx, s, KeyOfflineRides)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got["r1"] != "requested" {
		t.Errorf("got = %v, want r1=requested", got)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open("sqlite", "", nil); err == nil {
		t.Error("Open(sqlite) expected error")
	}
	if _, err := Open(BackendRedis, "", nil); err == nil {
		t.Error("Open(redis) without client expected error")
	}
}

func TestFavoritesKey(t *testing.T) {
	if got := FavoritesKey("u1"); got != "favoriteLocations:u1" {
		t.Errorf("FavoritesKey() = %q", got)
	}
}
