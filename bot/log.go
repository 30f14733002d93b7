package bot

import (
	"fmt"
	"os"

	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
	"gopkg.in/inconshreveable/log15.v2"
)

// darkColors and brightColors map log levels to ANSI color codes, for
// dark-background and light-background terminals respectively.
var darkColors = map[log15.Lvl]string{
	log15.LvlCrit:  "35",
	log15.LvlError: "31",
	log15.LvlWarn:  "33",
	log15.LvlInfo:  "32",
	log15.LvlDebug: "36",
}

var brightColors = map[log15.Lvl]string{
	log15.LvlCrit:  "35",
	log15.LvlError: "91",
	log15.LvlWarn:  "33",
	log15.LvlInfo:  "34",
	log15.LvlDebug: "30",
}

// coloredFormat builds a log15.Format that colorizes the level field using
// the given palette.
func coloredFormat(colors map[log15.Lvl]string) log15.Format {
	return log15.FormatFunc(func(r *log15.Record) []byte {
		line := fmt.Sprintf("\x1b[%sm%-5s\x1b[0m[%s] %s",
			colors[r.Lvl], r.Lvl, r.Time.Format("15:04:05"), r.Msg)
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			line += fmt.Sprintf(" %v=%v", r.Ctx[i], r.Ctx[i+1])
		}
		return []byte(line + "\n")
	})
}

// NewLogHandler builds a log15.Handler for the bot's log output honoring
// the --bright/--monochrome CLI flags. When stdout isn't a terminal, or
// monochrome is set, output falls back to plain logfmt; otherwise it's
// colorized using the dark- or light-terminal palette.
func NewLogHandler(bright, monochrome bool) LoggerProvider {
	return func() log15.Handler {
		out := colorable.NewColorableStdout()

		if monochrome || !isatty.IsTerminal(os.Stdout.Fd()) {
			return log15.StreamHandler(out, log15.LogfmtFormat())
		}

		colors := darkColors
		if bright {
			colors = brightColors
		}
		return log15.StreamHandler(out, coloredFormat(colors))
	}
}
