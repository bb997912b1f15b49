package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedFilename is the structured guess extracted from a noisy release name.
// Season and Episode are only meaningful when IsTV is true.
type ParsedFilename struct {
	Title   string
	Year    int
	Season  int
	Episode int
	IsTV    bool
}

var (
	extPattern = regexp.MustCompile(`\.[a-zA-Z0-9]{2,4}$`)

	// Episode markers, in fixed priority order. The first pattern that
	// matches wins; ambiguous inputs (year-like episode numbers and the
	// like) resolve deterministically through this ordering.
	episodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|[\s._-])S(\d{1,2})\s*E(\d{1,3})`),
		regexp.MustCompile(`(?i)(?:^|[\s._-])(\d{1,2})x(\d{1,3})`),
		regexp.MustCompile(`(?i)(?:^|[\s._-])Season\s*(\d{1,2})\s*Episode\s*(\d{1,3})`),
	}

	// Year bounded by separators, parentheses, or brackets (1900s/2000s).
	yearPattern = regexp.MustCompile(`(?:^|[\s(\[_-])((?:19|20)\d{2})(?:[\s)\]_-]|$)`)

	// Release junk: resolution, source, codecs, audio formats, common
	// release-group tags, plus any bracketed/parenthesized group.
	junkPattern = regexp.MustCompile(`(?i)\b(` +
		`1080p|720p|480p|2160p|4k|uhd|hdr|` +
		`bluray|blu-ray|brrip|bdrip|webrip|web-dl|webdl|hdtv|dvdrip|dvdscr|` +
		`x264|x265|h264|h265|hevc|avc|xvid|divx|10bit|` +
		`aac|ac3|eac3|dts|truehd|atmos|5\.1|7\.1|mp3|flac|opus|` +
		`remux|proper|repack|internal|limited|extended|unrated|remastered|` +
		`multi|subbed|dubbed|` +
		`yts|yify|rarbg|eztv|ettv|sparks|fgt` +
		`)\b|\[[^\]]*\]|\([^)]*\)`)

	spacePattern = regexp.MustCompile(`\s+`)
)

// ParseFilename extracts a title and, where present, a year and an episode
// marker from a video filename. Pure and deterministic: same input, same
// result, no I/O.
func ParseFilename(filename string) ParsedFilename {
	name := extPattern.ReplaceAllString(filename, "")
	name = strings.ReplaceAll(name, ".", " ")
	name = strings.ReplaceAll(name, "_", " ")

	p := ParsedFilename{}

	// Episode marker first: the marker and everything after it is never
	// part of the title.
	for _, rx := range episodePatterns {
		if m := rx.FindStringSubmatchIndex(name); m != nil {
			p.IsTV = true
			p.Season, _ = strconv.Atoi(name[m[2]:m[3]])
			p.Episode, _ = strconv.Atoi(name[m[4]:m[5]])
			name = name[:m[0]]
			break
		}
	}

	// Year next, on the already-truncated working title.
	if m := yearPattern.FindStringSubmatchIndex(name); m != nil {
		p.Year, _ = strconv.Atoi(name[m[2]:m[3]])
		name = name[:m[0]]
	}

	name = junkPattern.ReplaceAllString(name, "")
	name = spacePattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "-")
	p.Title = strings.TrimSpace(name)

	return p
}
