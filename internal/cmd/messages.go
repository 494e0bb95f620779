package cmd

import (
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/masahif/shoptadoru/internal/config"
	"github.com/masahif/shoptadoru/internal/scraper"
)

// Message keys are the English texts. Counts are passed through num so the
// printer does not apply locale digit grouping.
const (
	msgStageDiscover    = "[1/3] Detecting page type and collecting links..."
	msgFoundProductPage = "Detected product page. Total to process: %s"
	msgFoundLinks       = "Found product links: %s. Will process: %s"
	msgProcessing       = "[%s/%s] (%s%%) Processing: %s (remaining: %s)"
	msgProcessedOK      = "[%s/%s] Success"
	msgProcessedEmpty   = "[%s/%s] Failed to extract data"
	msgStageSave        = "[2/3] Saving to Excel..."
	msgStageDone        = "[3/3] Finalizing"
	msgSuccess          = "Scraping completed. Saved products: %s"
	msgFile             = "File: %s"
	msgError            = "Scraping error: %v"
	msgInterrupted      = "Interrupted by user"
)

var russian = map[string]string{
	msgStageDiscover:    "[1/3] Определение типа страницы и сбор ссылок...",
	msgFoundProductPage: "Найдено: страница товара. Всего к обработке: %s",
	msgFoundLinks:       "Найдено ссылок на товары: %s. Будет обработано: %s",
	msgProcessing:       "[%s/%s] (%s%%) Обработка: %s (осталось: %s)",
	msgProcessedOK:      "[%s/%s] Успешно",
	msgProcessedEmpty:   "[%s/%s] Не удалось извлечь данные",
	msgStageSave:        "[2/3] Сохранение в Excel...",
	msgStageDone:        "[3/3] Готово к завершению",
	msgSuccess:          "Парсинг успешно завершён. Сохранено товаров: %s",
	msgFile:             "Файл: %s",
	msgError:            "Ошибка парсинга: %v",
	msgInterrupted:      "Прервано пользователем",
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range russian {
		// Keys are constants; SetString only fails on malformed input
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.Russian, key, text)
	}
	return b
}

// newPrinter returns a printer for the message language
func newPrinter(lang string) *message.Printer {
	tag := language.English
	if lang == config.LangRU {
		tag = language.Russian
	}
	return message.NewPrinter(tag, message.Catalog(messages))
}

func num(n int) string {
	return strconv.Itoa(n)
}

// progressReporter prints localized progress lines
type progressReporter struct {
	out io.Writer
	p   *message.Printer
}

func newProgressReporter(out io.Writer, lang string) *progressReporter {
	return &progressReporter{out: out, p: newPrinter(lang)}
}

func (r *progressReporter) println(key string, args ...any) {
	_, _ = r.p.Fprintf(r.out, key, args...)
	_, _ = io.WriteString(r.out, "\n")
}

// Report implements scraper.Reporter
func (r *progressReporter) Report(event scraper.Event) {
	switch event.Kind {
	case scraper.StageDiscover:
		r.println(msgStageDiscover)
	case scraper.FoundProductPage:
		r.println(msgFoundProductPage, num(event.Total))
	case scraper.FoundLinks:
		r.println(msgFoundLinks, num(event.Found), num(event.Total))
	case scraper.Processing:
		r.println(msgProcessing, num(event.Current), num(event.Total), num(event.Percent()), event.URL, num(event.Remaining()))
	case scraper.Processed:
		if event.OK {
			r.println(msgProcessedOK, num(event.Current), num(event.Total))
		} else {
			r.println(msgProcessedEmpty, num(event.Current), num(event.Total))
		}
	case scraper.StageSave:
		r.println(msgStageSave)
	case scraper.StageDone:
		r.println(msgStageDone)
	}
}
