package llmextract

import "strings"

// BuildServiceRecordPrompt returns the extraction prompt for a vehicle
// service record. fields are listed verbatim in the instructions.
func BuildServiceRecordPrompt(fields []string, text string) string {
	return `Ты помощник, который извлекает структурированные данные о техническом обслуживании автомобиля из неструктурированного текста.
Извлеки следующие поля: ` + strings.Join(fields, ", ") + `.
Формат данных:
- date — дата (например, '2024-03-15')
- mileage — пробег в км (число)
- price — сумма (в рублях)
- works — список выполненных работ
- materials — список использованных материалов

Если поле не найдено — укажи пустую строку, null или пустой список.
Ответь ТОЛЬКО в виде JSON:
{"date": ..., "mileage": ..., "price": ..., "works": [...], "materials": [...]}.

Текст:
` + text
}
