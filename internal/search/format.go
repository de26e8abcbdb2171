package search

import (
	"fmt"
	"strings"

	"usersbox-bot/internal/classifier"
	"usersbox-bot/internal/usersbox"
)

const (
	maxSources        = 5
	maxItemsPerSource = 2
)

var typeEmojis = map[classifier.SearchType]string{
	classifier.TypePhone:     "📱",
	classifier.TypeEmail:     "📧",
	classifier.TypeName:      "👤",
	classifier.TypeCarNumber: "🚗",
	classifier.TypeUsername:  "🆔",
	classifier.TypeIPAddress: "🌐",
	classifier.TypeAddress:   "🏠",
	classifier.TypeGeneral:   "🔍",
}

// TypeEmoji returns the marker shown next to a search type.
func TypeEmoji(t classifier.SearchType) string {
	if e, ok := typeEmojis[t]; ok {
		return e
	}
	return "🔍"
}

var databaseNames = map[string]string{
	"yandex":        "Яндекс",
	"avito":         "Авито",
	"vk":            "ВКонтакте",
	"ok":            "Одноклассники",
	"delivery_club": "Delivery Club",
	"cdek":          "СДЭК",
}

// FormatResults renders a provider response as Markdown for delivery.
func FormatResults(resp *usersbox.SearchResponse, query string, searchType classifier.SearchType) string {
	if resp.Status == "error" {
		msg := "Неизвестная ошибка"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return fmt.Sprintf("❌ *Ошибка поиска:* %s", msg)
	}

	if resp.Data.Count == 0 {
		return fmt.Sprintf("🔍 *Поиск по запросу:* `%s`\n\n"+
			"❌ *Результатов не найдено*\n\n"+
			"💡 *Попробуйте:*\n• Другой формат номера\n• Полное имя и фамилию\n• Проверить правописание", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Поиск по запросу:* `%s`\n", TypeEmoji(searchType), query)
	fmt.Fprintf(&b, "🔎 *Тип поиска:* %s\n\n", searchType)
	fmt.Fprintf(&b, "📊 *Всего найдено:* %d записей\n\n", resp.Data.Count)

	if len(resp.Data.Items) > 0 {
		b.WriteString("📋 *Результаты поиска:*\n\n")
		for i, src := range resp.Data.Items {
			if i >= maxSources {
				break
			}
			fmt.Fprintf(&b, "*%d. База данных:* %s\n", i+1, databaseDisplay(src.Source.Database))
			fmt.Fprintf(&b, " *Коллекция:* %s\n", orNA(src.Source.Collection))
			fmt.Fprintf(&b, " *Найдено записей:* %d\n", src.Hits.Total())

			if len(src.Hits.Items) > 0 {
				b.WriteString(" *Данные:*\n")
				for j, item := range src.Hits.Items {
					if j >= maxItemsPerSource {
						break
					}
					writeItem(&b, item)
					b.WriteString("\n")
				}
			}
		}
	}

	b.WriteString("\n🔒 *Безопасность:*\n")
	b.WriteString("• Используйте данные ответственно\n")
	b.WriteString("• Соблюдайте приватность\n")
	b.WriteString("• Не нарушайте законы\n\n")
	b.WriteString("💡 *Примечание:* Показаны основные результаты из открытых источников.")
	return b.String()
}

func databaseDisplay(db string) string {
	if name, ok := databaseNames[db]; ok {
		return name
	}
	return orNA(db)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func writeItem(b *strings.Builder, item map[string]interface{}) {
	for key, value := range item {
		if strings.HasPrefix(key, "_") {
			continue
		}
		switch key {
		case "phone", "телефон", "tel", "mobile":
			fmt.Fprintf(b, " 📞 Телефон: `%v`\n", value)
		case "email", "почта", "mail", "e_mail":
			fmt.Fprintf(b, " 📧 Email: `%v`\n", value)
		case "full_name", "name", "имя", "фио", "first_name", "last_name":
			fmt.Fprintf(b, " 👤 Имя: `%v`\n", value)
		case "birth_date", "birthday", "дата_рождения", "bdate":
			fmt.Fprintf(b, " 🎂 Дата рождения: `%v`\n", value)
		case "address", "адрес", "city", "город":
			fmt.Fprintf(b, " 🏠 Адрес: `%s`\n", addressDisplay(value))
		case "age", "возраст":
			fmt.Fprintf(b, " 🎂 Возраст: `%v`\n", value)
		case "vk_id", "user_id", "id":
			fmt.Fprintf(b, " 🆔 ID: `%v`\n", value)
		default:
			if short, ok := shortScalar(value); ok {
				fmt.Fprintf(b, " • %s: `%s`\n", key, short)
			}
		}
	}
}

func addressDisplay(value interface{}) string {
	parts, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	var fields []string
	for _, v := range parts {
		if v != nil && fmt.Sprintf("%v", v) != "" {
			fields = append(fields, fmt.Sprintf("%v", v))
		}
	}
	return strings.Join(fields, ", ")
}

func shortScalar(value interface{}) (string, bool) {
	switch value.(type) {
	case string, float64, int, int64, bool:
		s := fmt.Sprintf("%v", value)
		if len(s) < 100 {
			return s, true
		}
	}
	return "", false
}
