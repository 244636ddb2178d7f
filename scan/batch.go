/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package scan

import (
	"context"
	"runtime"
	"sync"

	"bennypowers.dev/tsvirt/tsconfig"
)

// BatchResult is the outcome of scanning one root in a batch.
type BatchResult struct {
	Root   string
	Result *Result
	Err    error
}

// ScanBatch scans several roots in parallel. Every scan publishes into its
// own state; manifests are parsed once per batch through a shared cache
// unless the scanner already has one. parallel <= 0 uses one worker per CPU.
// Results arrive in completion order and the channel is closed when all
// roots are done.
func (s *Scanner) ScanBatch(ctx context.Context, roots []string, parallel int) <-chan BatchResult {
	results := make(chan BatchResult, len(roots))

	go func() {
		defer close(results)

		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		scanner := s
		if scanner.cache == nil {
			scanner = scanner.WithCache(tsconfig.NewMemoryCache())
		}

		jobs := make(chan string, len(roots))

		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for root := range jobs {
					if err := ctx.Err(); err != nil {
						results <- BatchResult{Root: root, Err: err}
						continue
					}
					result, err := scanner.Scan(ctx, root)
					results <- BatchResult{Root: root, Result: result, Err: err}
				}
			})
		}

		for _, root := range roots {
			jobs <- root
		}
		close(jobs)

		wg.Wait()
	}()

	return results
}
