package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"usersbox-bot/internal/classifier"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/repository"
	"usersbox-bot/internal/search"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog/log"
)

const (
	msgSearchUsage = "❌ Ошибка: Укажите запрос для поиска\n\n" +
		"Примеры:\n" +
		"📱 +79123456789 - поиск по телефону\n" +
		"📧 ivan@mail.ru - поиск по email\n" +
		"👤 Иван Петров - поиск по имени\n\n" +
		"💡 Или используйте /capabilities для полного списка"

	msgExhausted = "❌ У вас закончились попытки поиска!\n\n" +
		"🔗 Пригласите друзей по реферальной ссылке, чтобы получить больше попыток.\n" +
		"Используйте /referral для получения ссылки."

	msgProviderFailure = "❌ Ошибка при выполнении поиска\n\n" +
		"Сервис временно недоступен. Попробуйте позже."

	msgGenericFailure = "❌ Произошла ошибка при поиске\n\n" +
		"Попробуйте еще раз или обратитесь к администратору."

	msgSubscriptionConfirmed = "✅ Подписка подтверждена!\n\n" +
		"🎉 Теперь вы можете пользоваться всеми функциями бота!\n" +
		"💡 Отправьте любой запрос для поиска или используйте команду /help"

	msgGiveUsage = "❌ *Неверный формат команды*\n\n" +
		"*Использование:* `/give [user_id] [attempts]`\n" +
		"*Пример:* `/give 123456789 5`"

	msgGiveBadArgs = "❌ Неверный формат ID пользователя или количества попыток"

	msgExhaustedAfterSearch = "❌ Попытки закончились!\n\n" +
		"🔗 Получите больше попыток, пригласив друзей:\n" +
		"Используйте /referral"
)

// ProgressNotifier builds the dispatcher callback that tells the user their
// query was accepted and a search of the detected type is underway.
func ProgressNotifier(gw MessageGateway) search.ProgressFunc {
	return func(ctx context.Context, user *models.User, searchType classifier.SearchType) {
		if err := gw.Send(ctx, user.TelegramID, searchingText(searchType)); err != nil {
			log.Warn().Err(err).Int64("chat_id", user.TelegramID).Msg("failed to send progress message")
		}
	}
}

func subscribeKeyboard(channel string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 Подписаться на канал").WithURL(channelURL(channel)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Проверить подписку").WithCallbackData("check_subscription"),
		),
	)
}

func channelURL(channel string) string {
	return "https://t.me/" + strings.TrimPrefix(channel, "@")
}

func subscribeRequiredText(channel string) string {
	return fmt.Sprintf("🔒 Для использования бота необходимо подписаться на канал!\n\n"+
		"📢 Подпишитесь на канал %s и нажмите 'Проверить подписку'\n\n"+
		"💡 После подписки вы сможете пользоваться всеми функциями бота!", channel)
}

func subscriptionMissingText(channel string) string {
	return fmt.Sprintf("❌ Подписка не найдена\n\n"+
		"📢 Подпишитесь на канал %s и нажмите 'Проверить подписку' снова", channel)
}

func subscribeWelcomeText(channel string) string {
	return "🔍 ДОБРО ПОЖАЛОВАТЬ В USERSBOX BOT! 🔍\n\n" +
		"🎯 ЧТО УМЕЕТ ЭТОТ БОТ?\n" +
		"Этот бот поможет вам найти информацию о себе или близких из открытых источников в интернете.\n\n" +
		"🔒 ВАЖНОЕ ТРЕБОВАНИЕ:\n" +
		"Для использования бота необходимо подписаться на наш канал!\n\n" +
		fmt.Sprintf("📢 Подпишитесь на %s и нажмите 'Проверить подписку'", channel)
}

func welcomeText(user *models.User, referralBonus bool) string {
	var b strings.Builder
	name := user.FirstName
	if name == "" {
		name = "пользователь"
	}
	fmt.Fprintf(&b, "👋 Добро пожаловать, %s!\n\n", name)
	b.WriteString("🔍 USERSBOX SEARCH BOT\n\n")
	b.WriteString("🔍 ВОЗМОЖНОСТИ ПОИСКА:\n")
	b.WriteString("📱 По номеру телефона (+79123456789)\n")
	b.WriteString("📧 По email адресу (ivan@mail.ru)\n")
	b.WriteString("👤 По ФИО (Иван Петров)\n")
	b.WriteString("🚗 По номеру автомобиля (А123ВС777)\n")
	b.WriteString("🆔 По никнейму (@username)\n")
	b.WriteString("🏠 По адресу (Москва Тверская 1)\n")
	b.WriteString("🌐 По IP адресу (192.168.1.1)\n\n")
	b.WriteString("💡 Просто отправьте запрос - бот определит тип автоматически!\n\n")

	b.WriteString("📈 ВАШ СТАТУС:\n")
	fmt.Fprintf(&b, "💎 Попыток поиска: %s\n", user.Entitlement())
	fmt.Fprintf(&b, "👥 Приглашено друзей: %d\n", user.TotalReferrals)
	fmt.Fprintf(&b, "📅 Дата регистрации: %s\n\n", user.CreatedAt.Format("02.01.2006"))

	if referralBonus {
		b.WriteString("🎉 БОНУС! Вы получили +1 попытку за переход по реферальной ссылке!\n\n")
	}

	b.WriteString("🎮 КОМАНДЫ БОТА:\n")
	b.WriteString("/search [запрос] - поиск информации\n")
	b.WriteString("/balance - проверить баланс попыток\n")
	b.WriteString("/referral - получить реферальную ссылку\n")
	b.WriteString("/help - подробная справка\n")
	b.WriteString("/capabilities - список всех возможностей\n\n")

	if user.IsAdmin {
		b.WriteString("🔧 АДМИН ПАНЕЛЬ:\n")
		b.WriteString("/admin - панель администратора\n")
		b.WriteString("/give [ID] [попытки] - выдать попытки\n")
		b.WriteString("/stats - полная статистика\n\n")
	}

	b.WriteString("💸 ПОЛУЧИТЬ ПОПЫТКИ:\n")
	b.WriteString("🎁 За каждого приглашенного друга: +1 попытка\n")
	b.WriteString("🔗 Используйте команду /referral для получения ссылки\n\n")
	b.WriteString("🚀 Готов к поиску? Отправьте запрос прямо сейчас!")
	return b.String()
}

func capabilitiesText() string {
	return "🎯 *ВОЗМОЖНОСТИ ПОИСКА*\n\n" +
		"📱 *Телефон:* `+79123456789`, `89123456789`, `+7(912)345-67-89`\n" +
		"📧 *Email:* `user@mail.ru`, `user@gmail.com`\n" +
		"👤 *ФИО:* `Иван Петров`, `Ivan Petrov`, `Иван Петров Сидоров`\n" +
		"🚗 *Авто:* `А123ВС777`, `А 123 ВС 77`\n" +
		"🆔 *Никнейм:* `@username`, `username`\n" +
		"🏠 *Адрес:* `Москва ул Тверская д1`\n" +
		"🌐 *IP:* `192.168.1.1`\n" +
		"🔍 *Общий поиск:* любой текст\n\n" +
		"🗃️ *ИСТОЧНИКИ ДАННЫХ:*\n" +
		"• Мессенджеры и соцсети\n" +
		"• Интернет-магазины и доставка\n" +
		"• Государственные базы\n" +
		"• И еще 100+ источников!\n\n" +
		"🔍 *Просто отправьте данные - бот определит тип автоматически!*"
}

func helpText(channel string) string {
	return "📚 *ПОДРОБНАЯ СПРАВКА*\n\n" +
		"🎯 *Команды:*\n" +
		"🔍 `/search [запрос]` - поиск по базам данных\n" +
		"💰 `/balance` - баланс попыток и статистика\n" +
		"🔗 `/referral` - реферальная ссылка\n" +
		"🎯 `/capabilities` - все возможности поиска\n" +
		"📖 `/help` - эта справка\n\n" +
		"💎 *Система попыток:*\n" +
		"🎁 При регистрации: 0 попыток\n" +
		"🔗 За реферала: +1 попытка вам и другу\n\n" +
		"⚠️ *Правила:*\n" +
		"• Не используйте для незаконных целей\n" +
		"• Уважайте приватность других людей\n" +
		fmt.Sprintf("• Обязательна подписка на канал %s", channel)
}

func balanceText(user *models.User, total, successful int64, recent []models.SearchRecord) string {
	var b strings.Builder
	b.WriteString("💎 *ВАШ БАЛАНС И СТАТИСТИКА*\n\n")
	fmt.Fprintf(&b, "🔍 *Доступно поисков:* `%s`\n", user.Entitlement())
	fmt.Fprintf(&b, "👥 *Приглашено друзей:* `%d`\n", user.TotalReferrals)
	fmt.Fprintf(&b, "📅 *Регистрация:* `%s`\n", user.CreatedAt.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "⏰ *Последняя активность:* `%s`\n\n", user.LastActive.Format("02.01.2006 15:04"))

	fmt.Fprintf(&b, "🔍 *Всего поисков:* `%d`\n", total)
	fmt.Fprintf(&b, "✅ *Успешных:* `%d`\n", successful)
	fmt.Fprintf(&b, "📈 *Успешность:* `%s`\n", successRate(successful, total))
	fmt.Fprintf(&b, "🎯 *Реферальный код:* `%s`\n", user.ReferralCode)

	if len(recent) > 0 {
		b.WriteString("\n🕐 *Последние поиски:*\n")
		for _, rec := range recent {
			status := "❌"
			if rec.Success {
				status = "✅"
			}
			query := rec.Query
			if runes := []rune(query); len(runes) > 20 {
				query = string(runes[:20]) + "..."
			}
			fmt.Fprintf(&b, "%s %s `%s` - %s\n",
				status, search.TypeEmoji(classifier.SearchType(rec.SearchType)),
				query, rec.CreatedAt.Format("02.01 15:04"))
		}
	}

	if !user.Entitlement().IsUnlimited() {
		if user.AttemptsRemaining == 0 {
			b.WriteString("\n🚨 *Попытки закончились!*\n")
			b.WriteString("🔗 Пригласите друзей по реферальной ссылке: `/referral`\n")
			b.WriteString("За каждого друга: +1 попытка")
		} else if user.AttemptsRemaining <= 3 {
			b.WriteString("\n⚠️ *Мало попыток!* Пригласите друзей: `/referral`")
		}
	}
	return b.String()
}

func referralText(user *models.User, botUsername string, earned int64) string {
	link := fmt.Sprintf("https://t.me/%s?start=%s", botUsername, user.ReferralCode)
	var b strings.Builder
	b.WriteString("💰 *РЕФЕРАЛЬНАЯ ПРОГРАММА*\n\n")
	fmt.Fprintf(&b, "🔗 *Ваша ссылка:*\n`%s`\n\n", link)
	fmt.Fprintf(&b, "👥 *Приглашено друзей:* `%d`\n", user.TotalReferrals)
	fmt.Fprintf(&b, "💎 *Заработано попыток:* `%d`\n", earned)
	fmt.Fprintf(&b, "🎯 *Ваш код:* `%s`\n\n", user.ReferralCode)
	b.WriteString("💰 *Как это работает:*\n")
	b.WriteString("1️⃣ Поделитесь ссылкой с друзьями\n")
	b.WriteString("2️⃣ Друг переходит и регистрируется\n")
	b.WriteString("3️⃣ Вы получаете +1 попытку, друг тоже\n\n")
	b.WriteString("💡 *Чем больше друзей, тем больше поисков!*")
	return b.String()
}

func adminPanelText(user *models.User, s adminStats, topReferrers []models.User) string {
	var b strings.Builder
	b.WriteString("👑 *АДМИН ПАНЕЛЬ*\n\n")
	fmt.Fprintf(&b, "👥 *Всего пользователей:* `%d`\n", s.TotalUsers)
	fmt.Fprintf(&b, "🔍 *Всего поисков:* `%d`\n", s.TotalSearches)
	fmt.Fprintf(&b, "✅ *Успешных поисков:* `%d`\n", s.SuccessfulSearches)
	fmt.Fprintf(&b, "🔗 *Всего рефералов:* `%d`\n", s.TotalReferrals)
	fmt.Fprintf(&b, "📈 *Успешность:* `%s`\n\n", successRate(s.SuccessfulSearches, s.TotalSearches))

	b.WriteString("📈 *Активность (24ч):*\n")
	fmt.Fprintf(&b, "🆕 Новых пользователей: `%d`\n", s.RecentUsers)
	fmt.Fprintf(&b, "🔍 Поисков за день: `%d`\n\n", s.RecentSearches)

	if len(topReferrers) > 0 {
		b.WriteString("🏆 *Топ рефереры:*\n")
		for i, ref := range topReferrers {
			name := ref.FirstName
			if name == "" {
				name = "Неизвестно"
			}
			fmt.Fprintf(&b, "%d. `%s` - %d рефералов\n", i+1, name, ref.TotalReferrals)
		}
		b.WriteString("\n")
	}

	b.WriteString("🔧 *Админ команды:*\n")
	b.WriteString("💎 `/give [ID] [попытки]` - выдать попытки\n")
	b.WriteString("📊 `/stats` - подробная статистика\n\n")
	fmt.Fprintf(&b, "🤖 *Ваш ID:* `%d`", user.TelegramID)
	return b.String()
}

func statsText(s adminStats, today int64, todaySearches int64, distribution []repository.TypeCount) string {
	var b strings.Builder
	b.WriteString("📊 *ДЕТАЛЬНАЯ СТАТИСТИКА*\n\n")
	fmt.Fprintf(&b, "👥 *Всего пользователей:* %d\n", s.TotalUsers)
	fmt.Fprintf(&b, "🔍 *Всего поисков:* %d\n", s.TotalSearches)
	fmt.Fprintf(&b, "✅ *Успешных поисков:* %d\n", s.SuccessfulSearches)
	fmt.Fprintf(&b, "🔗 *Рефералов:* %d\n\n", s.TotalReferrals)
	fmt.Fprintf(&b, "📈 *За сегодня:*\n• Новых пользователей: %d\n• Поисков: %d\n\n", today, todaySearches)
	fmt.Fprintf(&b, "📊 *Успешность поисков:* %s\n", successRate(s.SuccessfulSearches, s.TotalSearches))

	if len(distribution) > 0 {
		b.WriteString("\n🔍 *Популярные типы поиска:*\n")
		for _, bucket := range distribution {
			fmt.Fprintf(&b, "• %s: %d\n", bucket.SearchType, bucket.Count)
		}
	}
	return b.String()
}

func searchingText(searchType classifier.SearchType) string {
	return fmt.Sprintf("%s Выполняю поиск...\n🔍 Тип: %s\n⏱️ Подождите немного...",
		search.TypeEmoji(searchType), searchType)
}

func remainingText(remaining models.Entitlement) string {
	return fmt.Sprintf("💎 Осталось попыток: %d", remaining.Remaining())
}

func attemptsGrantedText(amount int) string {
	return fmt.Sprintf("🎁 *Вам выданы попытки!*\n\n💎 Получено попыток: %d\nМожете продолжать поиск!", amount)
}

func successRate(successful, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(successful)/float64(total)*100)
}

func formatDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
