package search

import (
	"strings"
	"testing"

	"usersbox-bot/internal/classifier"
	"usersbox-bot/internal/usersbox"

	"github.com/stretchr/testify/assert"
)

func TestFormatResultsProviderError(t *testing.T) {
	resp := &usersbox.SearchResponse{
		Status: "error",
		Error:  &usersbox.APIError{Message: "quota exceeded"},
	}
	out := FormatResults(resp, "query", classifier.TypeGeneral)
	assert.Contains(t, out, "Ошибка поиска")
	assert.Contains(t, out, "quota exceeded")
}

func TestFormatResultsErrorWithoutMessage(t *testing.T) {
	resp := &usersbox.SearchResponse{Status: "error"}
	out := FormatResults(resp, "query", classifier.TypeGeneral)
	assert.Contains(t, out, "Неизвестная ошибка")
}

func TestFormatResultsNoHits(t *testing.T) {
	resp := &usersbox.SearchResponse{Status: "success"}
	out := FormatResults(resp, "ivan@mail.ru", classifier.TypeEmail)
	assert.Contains(t, out, "Результатов не найдено")
	assert.Contains(t, out, "ivan@mail.ru")
}

func TestFormatResultsRendersSources(t *testing.T) {
	resp := &usersbox.SearchResponse{
		Status: "success",
		Data: usersbox.SearchData{
			Count: 3,
			Items: []usersbox.SourceResult{
				{
					Source: usersbox.Source{Database: "vk", Collection: "users"},
					Hits: usersbox.Hits{
						HitsCount: 3,
						Items: []map[string]interface{}{
							{"phone": "+79123456789", "full_name": "Иван Петров", "_score": 12.5},
						},
					},
				},
			},
		},
	}
	out := FormatResults(resp, "+79123456789", classifier.TypePhone)

	assert.Contains(t, out, "📱")
	assert.Contains(t, out, "ВКонтакте", "known databases get a translated name")
	assert.Contains(t, out, "Телефон: `+79123456789`")
	assert.Contains(t, out, "Имя: `Иван Петров`")
	assert.NotContains(t, out, "_score", "underscore keys are internal and stay hidden")
	assert.Contains(t, out, "Безопасность")
}

func TestFormatResultsCapsSources(t *testing.T) {
	items := make([]usersbox.SourceResult, 8)
	for i := range items {
		items[i] = usersbox.SourceResult{
			Source: usersbox.Source{Database: "vk"},
			Hits:   usersbox.Hits{Count: 1},
		}
	}
	resp := &usersbox.SearchResponse{
		Status: "success",
		Data:   usersbox.SearchData{Count: 8, Items: items},
	}
	out := FormatResults(resp, "q", classifier.TypeGeneral)
	assert.Equal(t, maxSources, strings.Count(out, "База данных"))
}

func TestTypeEmojiFallback(t *testing.T) {
	assert.Equal(t, "🔍", TypeEmoji(classifier.SearchType("nonexistent")))
	assert.Equal(t, "📧", TypeEmoji(classifier.TypeEmail))
}
