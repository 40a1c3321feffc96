package integration

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// Interleaves constraint writes with snapshots and expects every request to
// succeed with a complete table.
func TestIntegration_ConcurrentUpdatesAndSnapshots(t *testing.T) {
	u := waitReady(t)
	cs := listConstraints(t, u)
	if len(cs) == 0 {
		t.Fatalf("catalog is empty")
	}
	target := cs[0]
	defer func() {
		resp := putConstraint(t, u, target.Class, fmt.Sprintf(`{"constraint":%d}`, target.Constraint))
		_ = resp.Body.Close()
	}()

	const writers, perWriter = 8, 10
	client := &http.Client{Timeout: 60 * time.Second}
	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter+writers)
	for g := 0; g < writers; g++ {
		wg.Add(2)
		go func(gid int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				body := fmt.Sprintf(`{"constraint":%d}`, gid*perWriter+i)
				r, _ := http.NewRequest(http.MethodPut, u+"/constraints/"+target.Class, strings.NewReader(body))
				r.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(r)
				if err != nil {
					errCh <- err
					return
				}
				if resp.StatusCode != http.StatusOK {
					errCh <- fmt.Errorf("put: expected 200, got %d", resp.StatusCode)
				}
				_ = resp.Body.Close()
			}
		}(g)
		go func() {
			defer wg.Done()
			resp, err := client.Get(u + "/constraints")
			if err != nil {
				errCh <- err
				return
			}
			if resp.StatusCode != http.StatusOK {
				errCh <- fmt.Errorf("list: expected 200, got %d", resp.StatusCode)
			}
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
	if got := listConstraints(t, u); len(got) != len(cs) {
		t.Fatalf("table lost rows: %d -> %d", len(cs), len(got))
	}
}
