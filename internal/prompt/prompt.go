package prompt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

// Format selects the reply shape requested from the model.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// System is the system instruction sent with every request.
const System = "Ты — эксперт-гид по Нижнему Новгороду."

const routeHeader = `Ты — увлеченный гид и ОДНОВРЕМЕННО скрупулезный планировщик маршрутов. Твоя задача — составить живой и интересный пешеходный маршрут, который СТРОГО соответствует запросу туриста.

--- ГЛАВНОЕ ПРАВИЛО: СООТВЕТСТВИЕ ВРЕМЕНИ ---
Общая продолжительность маршрута (посещения + время в пути) должна максимально точно соответствовать 'Доступному времени' туриста. Это самый важный критерий. Если указано 2 часа, маршрут должен быть на 2 часа.
`

const qualityRules = `
--- ПРАВИЛА КАЧЕСТВА ---
1. Пиши увлекательно, добавляй "фишку" или малоизвестный факт для каждого места.
2. Таймлайн должен быть простым и читаемым, в формате "0-15 мин: ...", "15-40 мин: ...".
`

const jsonContract = `
ТРЕБОВАНИЯ К JSON:
1. Ответ должен быть ОДНИМ JSON-объектом.
2. JSON должен содержать ключи: "title", "start_location", "route_points", "timeline", "summary".
3. "route_points" — массив объектов с ключами: "name", "reason", "travel_info", "visit_duration".
4. Не используй Markdown внутри JSON-значений.

### Пример идеального формата JSON (для запроса на 2 часа):
`

const textContract = `
ФОРМАТ ОТВЕТА:
Ответь обычным текстом без JSON: название маршрута, точка старта, пронумерованный список мест (для каждого: чем интересно, время в пути, время посещения), примерный таймлайн и короткое заключение.
`

// SampleRoute is the shape example embedded in JSON prompts.
const SampleRoute = `{
  "title": "Историческое сердце Нижнего: прогулка на 2 часа",
  "start_location": "Площадь Минина и Пожарского",
  "route_points": [
    {
      "name": "Дмитриевская башня",
      "reason": "Это не просто вход в Кремль, а его визитная карточка! По легенде, именно здесь хранилась казна города.",
      "travel_info": "Находится прямо у входа.",
      "visit_duration": "20 минут"
    },
    {
      "name": "Музей истории",
      "reason": "Интересный факт: в музее хранится копия Грамоты Ивана Грозного, даровавшей Нижнему особые привилегии.",
      "travel_info": "10 минут пешком от башни.",
      "visit_duration": "40 минут"
    },
    {
      "name": "Большая Покровская улица",
      "reason": "Завершим прогулку на главной пешеходной улице, где можно выпить кофе и почувствовать ритм города.",
      "travel_info": "15 минут пешком от музея.",
      "visit_duration": "35 минут"
    }
  ],
  "timeline": [
    "0-20 мин: Осмотр Дмитриевской башни.",
    "20-30 мин: Прогулка к Музею истории.",
    "30-70 мин: Посещение музея.",
    "70-85 мин: Прогулка до Большой Покровской.",
    "85-120 мин: Прогулка по улице и отдых."
  ],
  "summary": "Эта двухчасовая прогулка — насыщенное погружение в историю города, от древних стен до оживленных улиц."
}`

// BuildRoute renders the itinerary instruction for a completed form.
func BuildRoute(form tour.Form, format Format) string {
	var b strings.Builder
	b.WriteString(routeHeader)

	b.WriteString("\nДАННЫЕ ОТ ТУРИСТА:\n")
	fmt.Fprintf(&b, "- Интересы: %s\n", form.Interests)
	fmt.Fprintf(&b, "- Доступное время: %d %s\n", form.Hours, hoursWord(form.Hours))
	fmt.Fprintf(&b, "- Текущее местоположение: %s\n", form.Location)

	if len(form.Candidates) > 0 {
		b.WriteString("\n--- МЕСТА ДЛЯ МАРШРУТА ---\n")
		b.WriteString("Используй ТОЛЬКО эти места и не добавляй другие:\n")
		for i, p := range form.Candidates {
			if p.Address != "" {
				fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Title, p.Address)
			} else {
				fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
			}
		}
	}

	b.WriteString(qualityRules)

	if format == FormatText {
		b.WriteString(textContract)
		return b.String()
	}

	b.WriteString(jsonContract)
	b.WriteString(SampleRoute)
	b.WriteString("\n")
	return b.String()
}

// BuildCategory asks the model to map free-form interests onto one category key.
func BuildCategory(interests string) string {
	var b strings.Builder
	b.WriteString("Определи, к какой категории относятся интересы туриста. Ответь ТОЛЬКО номером категории, без пояснений.\n\n")
	b.WriteString("Категории:\n")
	for _, c := range tour.Categories {
		fmt.Fprintf(&b, "%s. %s\n", c.Key, c.Name)
	}
	fmt.Fprintf(&b, "\nИнтересы туриста: %s\n", interests)
	return b.String()
}

// ParseCategory extracts the category key from a classification reply.
// The first standalone number is taken; it must be one of tour.Categories.
func ParseCategory(reply string) (string, bool) {
	fields := strings.FieldsFunc(reply, func(r rune) bool { return !unicode.IsDigit(r) })
	if len(fields) == 0 {
		return "", false
	}
	key := fields[0]
	if !tour.IsCategory(key) {
		return "", false
	}
	return key, true
}

func hoursWord(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return "часов"
	case n%10 == 1:
		return "час"
	case n%10 >= 2 && n%10 <= 4:
		return "часа"
	default:
		return "часов"
	}
}
