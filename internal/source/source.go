// Package source prepares NPC script text before it is stored on an NPC:
// splitting the server and client halves, expanding joins, reading
// directives and producing the comment-free single-line wire form.
package source

import (
	"strings"
)

// LineSep joins lines inside stored script text.
const LineSep = "\xa7"

const (
	clientSideMarker  = "//#CLIENTSIDE"
	blockPositionMark = "//#BLOCKPOSITIONUPDATES"
	sparringZoneMark  = "sparringzone"
	singleplayerMark  = "singleplayer"
	toWeaponsKeyword  = "toweapons "
)

// Loader fetches auxiliary files by name for join expansion.
type Loader interface {
	Load(name string) ([]byte, error)
}

// Options controls how Prepare treats the combined text.
type Options struct {
	HasNPCServer bool // server half runs on an NPC server
	Trim         bool // build the comment-free formatted copies
}

// Source is the result of Prepare.
type Source struct {
	Server          string
	Client          string
	ServerFormatted string
	ClientFormatted string

	WeaponName           string
	BlockPositionUpdates bool
	SparringZone         bool
	Singleplayer         bool

	// MissingJoins lists join targets the loader could not provide.
	MissingJoins []string
}

// Prepare splits and preprocesses the combined script of one NPC.
func Prepare(raw string, opts Options, assets Loader) Source {
	var src Source

	levelHack := false
	if hasDirective(raw, sparringZoneMark) {
		src.SparringZone = true
		levelHack = true
	}
	if hasDirective(raw, singleplayerMark) {
		src.Singleplayer = true
		levelHack = true
	}

	switch {
	case !opts.HasNPCServer:
		src.Client = raw
	case levelHack:
		src.Server, src.Client = raw, raw
	default:
		src.Server, src.Client = SplitClientSide(raw)
	}

	var missing []string
	if src.Server != "" {
		src.Server, missing = ExpandJoins(src.Server, assets)
		src.MissingJoins = append(src.MissingJoins, missing...)
	}
	if src.Client != "" {
		src.Client, missing = ExpandJoins(src.Client, assets)
		src.MissingJoins = append(src.MissingJoins, missing...)
	}

	authoritative := src.Client
	if opts.HasNPCServer {
		authoritative = src.Server
	}
	src.BlockPositionUpdates = strings.Contains(authoritative, blockPositionMark)

	if opts.Trim {
		if src.Server != "" {
			src.ServerFormatted = Format(src.Server)
		}
		if src.Client != "" {
			src.ClientFormatted = Format(src.Client)
		}
	}

	src.WeaponName = WeaponName(src.Client)
	return src
}

// hasDirective reports whether s starts with a 12-byte level directive.
func hasDirective(s, prefix string) bool {
	if len(s) < 12 {
		return false
	}
	return s[:12] == prefix
}

// SplitClientSide returns the text before and after the client-side marker.
// Without a marker everything is server-side.
func SplitClientSide(raw string) (server, client string) {
	i := strings.Index(raw, clientSideMarker)
	if i < 0 {
		return raw, ""
	}
	return raw[:i], raw[i+len(clientSideMarker):]
}

// NormalizeLines converts CR/LF line endings to LineSep.
func NormalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", LineSep)
}

// ExpandJoins replaces every `join <name>;` with the content of <name>.txt.
// The name must not contain blanks or a line break, which keeps ordinary
// prose and string literals containing the word join untouched. Joined
// text is not scanned again. Names the loader cannot provide expand to
// nothing and are reported back.
func ExpandJoins(code string, assets Loader) (string, []string) {
	const kw = "join "
	var (
		b       strings.Builder
		missing []string
	)
	pos := 0
	for {
		i := strings.Index(code[pos:], kw)
		if i < 0 {
			break
		}
		start := pos + i
		nameStart := start + len(kw)
		semi := strings.IndexByte(code[nameStart:], ';')
		if semi < 0 {
			break
		}
		name := code[nameStart : nameStart+semi]
		if name == "" || strings.ContainsAny(name, " \t\n"+LineSep) {
			b.WriteString(code[pos:nameStart])
			pos = nameStart
			continue
		}

		b.WriteString(code[pos:start])
		content, ok := loadJoin(assets, name+".txt")
		if !ok {
			missing = append(missing, name)
		}
		b.WriteString(content)
		pos = nameStart + semi + 1
	}
	b.WriteString(code[pos:])
	return b.String(), missing
}

func loadJoin(assets Loader, file string) (string, bool) {
	if assets == nil {
		return "", false
	}
	data, err := assets.Load(file)
	if err != nil {
		return "", false
	}
	return NormalizeLines(string(data)), true
}

// WeaponName extracts the name given to `toweapons` in client code.
func WeaponName(code string) string {
	i := strings.Index(code, toWeaponsKeyword)
	if i < 0 {
		return ""
	}
	rest := code[i+len(toWeaponsKeyword):]
	end := strings.IndexAny(rest, ";}")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
