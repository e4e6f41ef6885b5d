// Package logging configures the process-wide apex/log logger.
package logging

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Init installs the global log handler. env selects the handler: "production"
// writes one JSON object per line to stdout, anything else (including the
// empty string) uses the human-readable text handler. levelName is parsed
// with log.ParseLevel and falls back to InfoLevel on a bad value.
func Init(env, levelName string) {
	if env == "production" {
		log.SetHandler(json.New(os.Stdout))
	} else {
		log.SetHandler(text.New(os.Stdout))
	}

	level, err := log.ParseLevel(levelName)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
