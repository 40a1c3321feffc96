package integration

import (
	"net/http"
	"testing"
)

// Benchmark for GET /constraints; to run: go test -bench=. ./test/integration -run ^$
func BenchmarkListConstraints(b *testing.B) {
	u := baseURL(b)
	client := &http.Client{}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := client.Get(u + "/constraints")
			if err == nil {
				_ = resp.Body.Close()
			}
		}
	})
}
