package extract

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"newsagent/internal/model"
)

const defaultBatchConcurrency = 3

type batchResult struct {
	index   int
	article model.Article
	keep    bool
}

// ExtractBatch enriches articles through a bounded worker pool. Each article
// gets its own timeout and the whole batch is bounded by timeout multiplied
// by the article count. Articles whose extraction fails are dropped from the
// output; articles without a URL pass through untouched. Output order
// matches input order.
func (e *Extractor) ExtractBatch(ctx context.Context, articles []model.Article, maxConcurrent int, timeout time.Duration) []model.Article {
	if len(articles) == 0 {
		return nil
	}

	if maxConcurrent <= 0 {
		maxConcurrent = defaultBatchConcurrency
	}

	if timeout <= 0 {
		timeout = e.methodTimeout
	}

	batchCtx, cancel := context.WithTimeout(ctx, timeout*time.Duration(len(articles)))
	defer cancel()

	jobs := make(chan int)
	results := make(chan batchResult, len(articles))

	var wg sync.WaitGroup

	for w := 0; w < maxConcurrent; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				results <- e.extractOne(batchCtx, i, articles[i], timeout)
			}
		}()
	}

	for i := range articles {
		jobs <- i
	}

	close(jobs)
	wg.Wait()
	close(results)

	kept := make([]batchResult, 0, len(articles))

	for res := range results {
		if res.keep {
			kept = append(kept, res)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })

	out := make([]model.Article, 0, len(kept))
	for _, item := range kept {
		out = append(out, item.article)
	}

	return out
}

func (e *Extractor) extractOne(ctx context.Context, index int, article model.Article, timeout time.Duration) batchResult {
	if article.URL == "" {
		return batchResult{index: index, article: article, keep: true}
	}

	articleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := e.Extract(articleCtx, article.URL)
	if !result.Success {
		failed := false
		article.ExtractionSuccess = &failed

		if result.Err != nil {
			article.ExtractionError = result.Err.Error()
		}

		e.logger.Warn().Str("url", article.URL).Str("reason", article.ExtractionError).Msg("dropping article after failed extraction")

		return batchResult{index: index, article: article, keep: false}
	}

	succeeded := true
	article.ExtractionSuccess = &succeeded
	article.ExtractionMethod = result.Method
	article.ExtractedContent = result.Text

	if strings.TrimSpace(article.TextContent) == "" || strings.Contains(article.TextContent, model.PaywallMarker) {
		article.TextContent = result.Text
	}

	return batchResult{index: index, article: article, keep: true}
}
