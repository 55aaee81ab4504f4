package main

import (
	"github.com/schollz/progressbar/v3"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

// newProgressBar returns a progress callback drawing a byte counter on
// stderr. The bar is created on the first callback so resolve failures
// leave no empty bar behind.
func newProgressBar(description string) domain.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(written, total int64) {
		if bar == nil {
			max := total
			if max <= 0 {
				max = -1
			}
			bar = progressbar.DefaultBytes(max, description)
		}
		if total > 0 && bar.GetMax64() != total {
			bar.ChangeMax64(total)
		}
		_ = bar.Set64(written)
		if total > 0 && written >= total {
			_ = bar.Finish()
		}
	}
}
