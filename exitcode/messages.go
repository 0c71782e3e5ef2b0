package exitcode

import (
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var messages = map[Code]map[language.Tag]string{
	FailedToStart: {
		language.English: "The player failed to start. Please check the player path in preferences.",
		language.Spanish: "No se pudo iniciar el reproductor. Compruebe la ruta del reproductor en las preferencias.",
	},
	Crashed: {
		language.English: "The player has crashed.",
		language.Spanish: "El reproductor se ha bloqueado.",
	},
	Timedout: {
		language.English: "The player took too long to respond.",
		language.Spanish: "El reproductor tardó demasiado en responder.",
	},
	ReadError: {
		language.English: "An error occurred when reading from the player.",
		language.Spanish: "Se produjo un error al leer del reproductor.",
	},
	WriteError: {
		language.English: "An error occurred when writing to the player.",
		language.Spanish: "Se produjo un error al escribir en el reproductor.",
	},
	FileOpen: {
		language.English: "Failed to open file",
		language.Spanish: "No se pudo abrir el archivo",
	},
	UnrecognizedFormat: {
		language.English: "The file format is not recognized.",
		language.Spanish: "No se reconoce el formato del archivo.",
	},
	NoDisc: {
		language.English: "No disc found in the drive.",
		language.Spanish: "No se encontró ningún disco en la unidad.",
	},
	HTTP403: {
		language.English: "Access to the stream was forbidden (HTTP 403).",
		language.Spanish: "Acceso al flujo prohibido (HTTP 403).",
	},
	HTTP404: {
		language.English: "The stream was not found (HTTP 404).",
		language.Spanish: "No se encontró el flujo (HTTP 404).",
	},
	NoStream: {
		language.English: "No stream found to play.",
		language.Spanish: "No se encontró ningún flujo para reproducir.",
	},
	TitleNotFound: {
		language.English: "The requested title was not found on the disc.",
		language.Spanish: "No se encontró el título solicitado en el disco.",
	},
	QuitNoPlay: {
		language.English: "The player quit before playback started.",
		language.Spanish: "El reproductor terminó antes de empezar la reproducción.",
	},
	OutPointReached: {
		language.English: "Playback reached the out point.",
		language.Spanish: "La reproducción alcanzó el punto final.",
	},
}

var (
	supported = []language.Tag{language.English, language.Spanish}
	matcher   = language.NewMatcher(supported)
	builder   = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, translations := range messages {
		for tag, text := range translations {
			lo.Must0(b.SetString(tag, messageKey(code), text))
		}
	}
	return b
}

func messageKey(c Code) string {
	return "exitcode." + c.String()
}

// Classifier turns codes into user-visible messages in one language. It also
// carries the backend's last diagnostic line, which only FileOpen reports.
type Classifier struct {
	mu      sync.Mutex
	detail  string
	printer *message.Printer
}

// NewClassifier creates a Classifier for lang (a BCP 47 tag such as "es").
// Unknown or unsupported languages fall back to English.
func NewClassifier(lang string) *Classifier {
	tag := language.English
	if parsed, err := language.Parse(lang); err == nil {
		_, idx, _ := matcher.Match(parsed)
		tag = supported[idx]
	}
	return &Classifier{printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// SetDetail stores the diagnostic to attach to the next FileOpen message.
func (c *Classifier) SetDetail(detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail = detail
}

// Message returns the localized message for code. Out-of-range codes are
// reported as Crashed. A FileOpen message consumes the stored detail.
func (c *Classifier) Message(code Code) string {
	code = Classify(int(code))

	text := c.printer.Sprintf(message.Key(messageKey(code), messages[code][language.English]))
	if code != FileOpen {
		return text
	}

	c.mu.Lock()
	detail := c.detail
	c.detail = ""
	c.mu.Unlock()

	if detail == "" {
		return text
	}
	return text + ": " + detail
}

// Describe returns the English message for code without any detail.
func Describe(code Code) string {
	return messages[Classify(int(code))][language.English]
}
