package lens

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// widePayload builds a root suite with the given number of tests, each with a logging keyword.
func widePayload(b *testing.B, tests int) *Payload {
	b.Helper()

	e := newPayloadEncoder(b, PoolOptions{})
	children := make([][]any, tests)
	for i := range children {
		children[i] = e.test(fmt.Sprintf("Test %d", i), []string{"bench"}, e.status("P", int64(i), 1),
			e.keyword("kw", "Log", e.status("P", int64(i), 1),
				e.message(int64(i), "I", fmt.Sprintf("message %d", i))))
	}
	return e.payload(e.suite("Bench", e.status("P", 0, int64(tests)), [4]int64{}, children...))
}

func BenchmarkReportBuild(b *testing.B) {
	payload := widePayload(b, 1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		report, err := NewReport(payload, PoolOptions{})
		require.NoError(b, err)
		_, err = report.Suite()
		require.NoError(b, err)
	}
}

func BenchmarkPathToTest(b *testing.B) {
	report, err := NewReport(widePayload(b, 1000), PoolOptions{})
	require.NoError(b, err)
	_, err = report.Suite()
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(report.PathToTest("Bench.Test 999")) != 2 {
			b.Fatal("test not found")
		}
	}
}

func BenchmarkValuePoolDecodeAll(b *testing.B) {
	payload := widePayload(b, 1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool, err := NewValuePool(payload.Strings, payload.Integers, PoolOptions{})
		require.NoError(b, err)
		require.NoError(b, pool.DecodeAll(context.Background()))
	}
}

func BenchmarkPayloadCache_SaveLoad(b *testing.B) {
	payload := widePayload(b, 200)
	stores := map[string]func(b *testing.B) Storage{
		"mem": func(b *testing.B) Storage {
			return NewMemStorage()
		},
		"badger": func(b *testing.B) Storage {
			store, err := NewBadgerStorage(filepath.Join(b.TempDir(), "badger"), 64, false)
			require.NoError(b, err)
			return store
		},
	}

	for name, newStore := range stores {
		b.Run(name, func(b *testing.B) {
			store := newStore(b)
			defer store.Close()
			cache := NewPayloadCache(store)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				require.NoError(b, cache.Save("bench", payload))
				if _, ok, err := cache.Load("bench"); err != nil || !ok {
					b.Fatal("load failed", err)
				}
			}
		})
	}
}
