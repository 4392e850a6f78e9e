package presenters

import (
	"fmt"
	"strings"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

// MaxMessageLength is Discord's limit on message content.
const MaxMessageLength = 2000

// SoundList renders the library grouped by category, keeping the library's
// order within each group.
func SoundList(sounds []repository.Sound) string {
	if len(sounds) == 0 {
		return "The sound library is empty."
	}

	var categories []string
	byCategory := make(map[string][]string)
	for _, s := range sounds {
		if _, ok := byCategory[s.Category]; !ok {
			categories = append(categories, s.Category)
		}
		byCategory[s.Category] = append(byCategory[s.Category], "`"+s.ID+"`")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%d sounds**\n", len(sounds))
	for _, c := range categories {
		name := c
		if name == "" {
			name = "uncategorized"
		}
		fmt.Fprintf(&b, "**%s**: %s\n", name, strings.Join(byCategory[c], ", "))
	}
	return truncate(b.String())
}

func entryLine(e playback.Entry) string {
	line := fmt.Sprintf("`%s`", e.SoundID)
	if e.Submitter != "" {
		line += " from " + e.Submitter
	}
	switch {
	case e.RepeatCount == playback.Forever:
		line += " (forever)"
	case e.RepeatCount > 1:
		line += fmt.Sprintf(" (x%d)", e.RepeatCount)
	}
	return line
}

// Status renders a guild's playback status.
func Status(st playback.Status) string {
	var b strings.Builder
	if st.ChannelID != "" {
		fmt.Fprintf(&b, "**%s** in <#%s>", st.State, st.ChannelID)
	} else {
		fmt.Fprintf(&b, "**%s**", st.State)
	}
	fmt.Fprintf(&b, " | volume %d%%", int(st.Volume*100+0.5))
	if st.Repeating {
		b.WriteString(" | repeating")
	}
	b.WriteString("\n")

	if st.Current != nil {
		fmt.Fprintf(&b, "Now playing: %s\n", entryLine(*st.Current))
	} else {
		b.WriteString("Nothing is playing.\n")
	}
	for i, e := range st.Queue {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entryLine(e))
	}
	return truncate(b.String())
}

func truncate(s string) string {
	if len(s) <= MaxMessageLength {
		return s
	}
	const more = "\n…"
	cut := strings.LastIndexByte(s[:MaxMessageLength-len(more)], '\n')
	if cut < 0 {
		cut = MaxMessageLength - len(more)
	}
	return s[:cut] + more
}
