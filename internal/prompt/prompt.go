// Package prompt renders the shell prompt from a template such as
// "${KYEL}${USER}${KRST}@${HOSTNAME}:${WRKDIR}$".
//
// Supported keys:
//
//	${USER}      current user name
//	${HOSTNAME}  host name
//	${WRKDIR}    working directory, with the home directory shown as ~
//	${CMD_TIME}  "took 2.3s" when the last command ran long enough
//	${RC}        rc_ok or rc_err depending on the last exit code
//	${KRED} ...  start a coloured segment (see styles.PromptColorKeys)
//	${KRST}      end the coloured segment
//
// Unknown keys are left in the output as written.
package prompt

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/pyc/internal/config"
	"github.com/Iron-Ham/pyc/internal/styles"
)

var keyRegex = regexp.MustCompile(`\$\{([^}]*)\}`)

// State is what the prompt keys resolve against.
type State struct {
	User     string
	Hostname string
	WorkDir  string
	Home     string

	// ExitCode and Duration describe the last command. Duration is zero
	// before the first command.
	ExitCode int
	Duration time.Duration
}

// CurrentState reads the user, host and directories of this process.
// Fields that cannot be determined are left empty.
func CurrentState() State {
	var st State
	if u, err := user.Current(); err == nil {
		st.User = u.Username
	} else {
		st.User = os.Getenv("USER")
	}
	st.Hostname, _ = os.Hostname()
	st.WorkDir, _ = os.Getwd()
	st.Home, _ = os.UserHomeDir()
	return st
}

// Template is a parsed prompt configuration.
type Template struct {
	cfg config.PromptConfig
}

// New creates a Template from the prompt section of the configuration.
func New(cfg config.PromptConfig) *Template {
	return &Template{cfg: cfg}
}

type segment struct {
	text  string
	color lipgloss.Color
}

// Render resolves every key in the template. The result is trimmed, and
// when the break option is set the break string follows on a new line.
func (t *Template) Render(st State) string {
	segs := t.resolve(st)
	trimSegments(segs)

	var sb strings.Builder
	for _, s := range segs {
		if s.text == "" {
			continue
		}
		if s.color == "" {
			sb.WriteString(s.text)
			continue
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(s.color).Render(s.text))
	}

	if t.cfg.Break {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(t.cfg.BreakWith))
	}
	return sb.String()
}

func (t *Template) resolve(st State) []segment {
	var segs []segment
	var color lipgloss.Color

	line := t.cfg.Line
	last := 0
	for _, m := range keyRegex.FindAllStringSubmatchIndex(line, -1) {
		segs = append(segs, segment{text: line[last:m[0]], color: color})
		last = m[1]

		name := line[m[2]:m[3]]
		if c, ok := styles.PromptColor(name); ok {
			color = c
			continue
		}
		if name == "KRST" {
			color = ""
			continue
		}
		segs = append(segs, segment{text: t.resolveKey(name, line[m[0]:m[1]], st), color: color})
	}
	segs = append(segs, segment{text: line[last:], color: color})
	return segs
}

func (t *Template) resolveKey(name, raw string, st State) string {
	switch name {
	case "USER":
		return st.User
	case "HOSTNAME":
		return st.Hostname
	case "WRKDIR":
		return collapseHome(st.WorkDir, st.Home)
	case "CMD_TIME":
		if st.Duration > 0 && st.Duration >= t.cfg.MinDuration() {
			return fmt.Sprintf("took %.1fs", st.Duration.Seconds())
		}
		return ""
	case "RC":
		if st.ExitCode == 0 {
			return t.cfg.RcOk
		}
		return t.cfg.RcErr
	default:
		return raw
	}
}

// trimSegments trims leading whitespace from the first non-empty segment
// and trailing whitespace from the last one.
func trimSegments(segs []segment) {
	for i := range segs {
		segs[i].text = strings.TrimLeft(segs[i].text, " \t\n")
		if segs[i].text != "" {
			break
		}
	}
	for i := len(segs) - 1; i >= 0; i-- {
		segs[i].text = strings.TrimRight(segs[i].text, " \t\n")
		if segs[i].text != "" {
			break
		}
	}
}

func collapseHome(dir, home string) string {
	if home == "" || home == "/" {
		return dir
	}
	if dir == home {
		return "~"
	}
	if strings.HasPrefix(dir, home+"/") {
		return "~" + dir[len(home):]
	}
	return dir
}
