package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func BenchmarkCollector_RecordCompile(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordCompile("site.yaml", StatusSuccess, time.Millisecond, 4096)
	}
}

func BenchmarkCollector_RecordCompile_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordCompile("site.yaml", StatusSuccess, time.Millisecond, 4096)
		}
	})
}

func BenchmarkCollector_RecordImport(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordImport(i%2 == 0, time.Microsecond)
	}
}
