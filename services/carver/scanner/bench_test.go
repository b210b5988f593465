package scanner

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
)

func benchmarkRun(b *testing.B, kind EngineKind, workers int) {
	reg := testRegistry(b)
	engine, err := NewEngine(kind, reg)
	if err != nil {
		b.Fatalf("engine: %v", err)
	}
	// 4MB random data
	data := make([]byte, 4*1024*1024)
	rand.Read(data)
	c := NewCoordinator(reg, WithEngine(engine))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := c.Run(context.Background(), data, len(data), workers); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(len(data)))
}

func BenchmarkRun(b *testing.B) {
	for _, kind := range []EngineKind{EngineNaive, EngineAho} {
		for _, workers := range []int{1, 4, 16} {
			b.Run(fmt.Sprintf("%s/workers=%d", kind, workers), func(b *testing.B) {
				benchmarkRun(b, kind, workers)
			})
		}
	}
}

// BenchmarkBuildAho measures automaton build time over the built-in table.
func BenchmarkBuildAho(b *testing.B) {
	reg := testRegistry(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		BuildAho(reg)
	}
}
