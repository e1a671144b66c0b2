package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
	"github.com/dshills/cutlist/internal/event"
	"github.com/dshills/cutlist/internal/media"
)

// shell is the interactive command loop over an engine and a media
// library. One instance serves one session.
type shell struct {
	eng  *engine.Engine
	lib  *media.Library
	path string // current project file, "" until save/load
}

func newShell(eng *engine.Engine, lib *media.Library, path string) *shell {
	return &shell{eng: eng, lib: lib, path: path}
}

func (s *shell) run() error {
	fmt.Println("Cutlist editing shell. Type 'help' for commands.")

	// Edits echo to the prompt so batch effects stay visible.
	sub := s.eng.Subscribe("edit.*", func(ev event.Event) {
		if ev.Topic == event.TopicEditApplied {
			fmt.Printf("  %v\n", ev.Payload)
		}
	})
	defer sub.Cancel()

	historyFile := ".cutlist_history"
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".cutlist_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "cutlist> ",
		HistoryFile:  historyFile,
		AutoComplete: s.completer(),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			// io.EOF on ctrl-d ends the session.
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := s.dispatch(strings.Fields(line))
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *shell) completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("track",
			readline.PcItem("add"),
			readline.PcItem("ls"),
			readline.PcItem("rm"),
		),
		readline.PcItem("media",
			readline.PcItem("add"),
			readline.PcItem("ls"),
			readline.PcItem("rm"),
		),
		readline.PcItem("insert"),
		readline.PcItem("move"),
		readline.PcItem("trim",
			readline.PcItem("start"),
			readline.PcItem("end"),
		),
		readline.PcItem("split"),
		readline.PcItem("ripple"),
		readline.PcItem("rm"),
		readline.PcItem("slip"),
		readline.PcItem("slide"),
		readline.PcItem("roll"),
		readline.PcItem("copy"),
		readline.PcItem("cut"),
		readline.PcItem("paste"),
		readline.PcItem("dup"),
		readline.PcItem("select",
			readline.PcItem("clear"),
			readline.PcItem("region"),
			readline.PcItem("extend"),
		),
		readline.PcItem("marker",
			readline.PcItem("add"),
			readline.PcItem("ls"),
			readline.PcItem("rm"),
		),
		readline.PcItem("undo"),
		readline.PcItem("redo"),
		readline.PcItem("history"),
		readline.PcItem("playhead"),
		readline.PcItem("snap"),
		readline.PcItem("ls"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("export"),
		readline.PcItem("import"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// dispatch runs one command. It returns true when the session should end.
func (s *shell) dispatch(args []string) (bool, error) {
	switch args[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		s.printHelp()
		return false, nil
	case "track":
		return false, s.cmdTrack(args[1:])
	case "media":
		return false, s.cmdMedia(args[1:])
	case "insert":
		return false, s.cmdInsert(args[1:])
	case "move":
		return false, s.cmdMove(args[1:])
	case "trim":
		return false, s.cmdTrim(args[1:])
	case "split":
		return false, s.cmdSplit(args[1:])
	case "ripple":
		return false, s.cmdRipple(args[1:])
	case "rm":
		return false, s.cmdRemove(args[1:])
	case "slip":
		return false, s.cmdSlip(args[1:])
	case "slide":
		return false, s.cmdSlide(args[1:])
	case "roll":
		return false, s.cmdRoll(args[1:])
	case "copy":
		return false, s.cmdCopy(args[1:])
	case "cut":
		return false, s.cmdCut(args[1:])
	case "paste":
		return false, s.cmdPaste(args[1:])
	case "dup":
		return false, s.cmdDuplicate(args[1:])
	case "select":
		return false, s.cmdSelect(args[1:])
	case "marker":
		return false, s.cmdMarker(args[1:])
	case "undo":
		if done, err := s.eng.Undo(); err != nil {
			return false, err
		} else if !done {
			fmt.Println("nothing to undo")
		}
		return false, nil
	case "redo":
		if done, err := s.eng.Redo(); err != nil {
			return false, err
		} else if !done {
			fmt.Println("nothing to redo")
		}
		return false, nil
	case "history":
		s.cmdHistory()
		return false, nil
	case "playhead":
		return false, s.cmdPlayhead(args[1:])
	case "snap":
		return false, s.cmdSnap(args[1:])
	case "ls":
		s.cmdList()
		return false, nil
	case "save":
		return false, s.cmdSave(args[1:])
	case "load":
		return false, s.cmdLoad(args[1:])
	case "export":
		return false, s.cmdExport(args[1:])
	case "import":
		return false, s.cmdImport(args[1:])
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
}

func (s *shell) printHelp() {
	fmt.Print(`Commands:
  track add <name> <video|audio|subtitle|effect> [index]
  track ls | track rm <index>
  media add <path> <duration>      Register media (duration e.g. 90, 1:30)
  media ls | media rm <#>
  insert <media#> <track-index> <at> [reject|overwrite|ripple]
  move <clip> <track-index> <to> [overwrite]
  trim <clip> start|end <time>
  split <clip> <time>
  ripple <clip...>                 Ripple delete
  rm <clip...>                     Remove, leaving gaps
  slip <clip> <offset> | slide <clip> <offset>
  roll <left-clip> <right-clip> <boundary>
  copy <clip...> | cut <clip...> | paste <at> [track-index] | dup <clip...>
  select <clip...> | select clear | select extend <clip>
  select region <start> <end> [lo hi]
  marker add <name> <at> | marker ls | marker rm <id>
  undo | redo | history
  playhead [time] | snap <time> | ls
  save [path] | load <path> | export [path.json] | import <path.json>
  exit
`)
}

// ============================================================================
// Argument parsing helpers
// ============================================================================

func parseTime(s string) (timecode.TimePoint, error) {
	return timecode.Parse(s)
}

// parseOffset accepts signed offsets like "+2", "-1:30".
func parseOffset(s string) (timecode.TimePoint, error) {
	neg := strings.HasPrefix(s, "-")
	t, err := timecode.Parse(strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+"))
	if err != nil {
		return 0, err
	}
	if neg {
		return -t, nil
	}
	return t, nil
}

func parseID(s string) (engine.ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return engine.InvalidID, fmt.Errorf("bad entity id %q", s)
	}
	return engine.ID(n), nil
}

func parseIDs(args []string) ([]engine.ID, error) {
	ids := make([]engine.ID, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *shell) trackByIndex(arg string) (engine.ID, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return engine.InvalidID, fmt.Errorf("bad track index %q", arg)
	}
	id, ok := s.eng.TrackByIndex(n)
	if !ok {
		return engine.InvalidID, fmt.Errorf("no track at index %d", n)
	}
	return id, nil
}

func parseTrackType(s string) (engine.TrackType, error) {
	switch s {
	case "video":
		return engine.TrackVideo, nil
	case "audio":
		return engine.TrackAudio, nil
	case "subtitle":
		return engine.TrackSubtitle, nil
	case "effect":
		return engine.TrackEffect, nil
	default:
		return 0, fmt.Errorf("unknown track type %q", s)
	}
}

// ============================================================================
// Commands
// ============================================================================

func (s *shell) cmdTrack(args []string) error {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return errors.New("usage: track add <name> <type> [index]")
		}
		typ, err := parseTrackType(args[2])
		if err != nil {
			return err
		}
		index := len(s.eng.Tracks())
		if len(args) > 3 {
			if index, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("bad index %q", args[3])
			}
		}
		id, err := s.eng.CreateTrack(args[1], typ, index)
		if err != nil {
			return err
		}
		t, _ := s.eng.Track(id)
		fmt.Printf("track %d: %s (%s)\n", t.Index, t.Name, t.Type)
		return nil
	case "ls":
		for _, id := range s.eng.Tracks() {
			t, ok := s.eng.Track(id)
			if !ok {
				continue
			}
			flags := ""
			if t.Locked {
				flags += " locked"
			}
			if t.Muted {
				flags += " muted"
			}
			fmt.Printf("  [%d] %-12s %-8s %d clips%s\n",
				t.Index, t.Name, t.Type, len(s.eng.ClipsOnTrack(id)), flags)
		}
		return nil
	case "rm":
		if len(args) < 2 {
			return errors.New("usage: track rm <index>")
		}
		id, err := s.trackByIndex(args[1])
		if err != nil {
			return err
		}
		return s.eng.RemoveTrack(id)
	default:
		return fmt.Errorf("unknown track command %q", args[0])
	}
}

func (s *shell) cmdMedia(args []string) error {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return errors.New("usage: media add <path> <duration>")
		}
		d, err := parseTime(args[2])
		if err != nil {
			return err
		}
		info := media.Info{
			ID:       uuid.New(),
			Path:     args[1],
			Kind:     kindFromPath(args[1]),
			Duration: d,
		}
		if err := s.lib.Add(info); err != nil {
			return err
		}
		fmt.Printf("added %s (%s, %s)\n", info.Path, info.Kind, info.Duration)
		return nil
	case "ls":
		infos, err := s.lib.List()
		if err != nil {
			return err
		}
		for i, info := range infos {
			fmt.Printf("  [%d] %-30s %-6s %s\n", i, filepath.Base(info.Path), info.Kind, info.Duration)
		}
		fmt.Printf("%s items\n", humanize.Comma(int64(len(infos))))
		return nil
	case "rm":
		if len(args) < 2 {
			return errors.New("usage: media rm <#>")
		}
		info, err := s.mediaByIndex(args[1])
		if err != nil {
			return err
		}
		return s.lib.Remove(info.ID)
	default:
		return fmt.Errorf("unknown media command %q", args[0])
	}
}

func (s *shell) mediaByIndex(arg string) (media.Info, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return media.Info{}, fmt.Errorf("bad media index %q", arg)
	}
	infos, err := s.lib.List()
	if err != nil {
		return media.Info{}, err
	}
	if n < 0 || n >= len(infos) {
		return media.Info{}, fmt.Errorf("no media at index %d", n)
	}
	return infos[n], nil
}

func kindFromPath(path string) media.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".mkv", ".avi", ".webm":
		return media.KindVideo
	case ".wav", ".mp3", ".flac", ".aac", ".ogg":
		return media.KindAudio
	case ".png", ".jpg", ".jpeg", ".tif", ".exr":
		return media.KindImage
	default:
		return media.KindUnknown
	}
}

func (s *shell) cmdInsert(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: insert <media#> <track-index> <at> [mode]")
	}
	info, err := s.mediaByIndex(args[0])
	if err != nil {
		return err
	}
	track, err := s.trackByIndex(args[1])
	if err != nil {
		return err
	}
	at, err := parseTime(args[2])
	if err != nil {
		return err
	}
	mode := engine.InsertReject
	if len(args) > 3 {
		switch args[3] {
		case "reject":
		case "overwrite":
			mode = engine.InsertOverwrite
		case "ripple":
			mode = engine.InsertRipple
		default:
			return fmt.Errorf("unknown insert mode %q", args[3])
		}
	}

	c := timeline.NewClip(info.ID, timecode.NewRange(0, info.Duration), at)
	c.Name = filepath.Base(info.Path)
	c.Track = track
	id, err := s.eng.InsertClip(c, mode)
	if err != nil {
		return err
	}
	fmt.Printf("clip %d\n", id)
	return nil
}

func (s *shell) cmdMove(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: move <clip> <track-index> <to> [overwrite]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	track, err := s.trackByIndex(args[1])
	if err != nil {
		return err
	}
	to, err := parseTime(args[2])
	if err != nil {
		return err
	}
	overwrite := len(args) > 3 && args[3] == "overwrite"
	return s.eng.MoveClip(id, track, to, overwrite)
}

func (s *shell) cmdTrim(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: trim <clip> start|end <time>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	t, err := parseTime(args[2])
	if err != nil {
		return err
	}
	switch args[1] {
	case "start":
		return s.eng.TrimStart(id, t)
	case "end":
		return s.eng.TrimEnd(id, t)
	default:
		return fmt.Errorf("trim edge must be start or end, got %q", args[1])
	}
}

func (s *shell) cmdSplit(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: split <clip> <time>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	at, err := parseTime(args[1])
	if err != nil {
		return err
	}
	tail, err := s.eng.Split(id, at)
	if err != nil {
		return err
	}
	fmt.Printf("clip %d\n", tail)
	return nil
}

func (s *shell) cmdRipple(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ripple <clip...>")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	return s.eng.RippleDelete(ids...)
}

func (s *shell) cmdRemove(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rm <clip...>")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	return s.eng.RemoveClips(ids...)
}

func (s *shell) cmdSlip(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: slip <clip> <offset>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	off, err := parseOffset(args[1])
	if err != nil {
		return err
	}
	return s.eng.Slip(id, off)
}

func (s *shell) cmdSlide(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: slide <clip> <offset>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	off, err := parseOffset(args[1])
	if err != nil {
		return err
	}
	return s.eng.Slide(id, off)
}

func (s *shell) cmdRoll(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: roll <left-clip> <right-clip> <boundary>")
	}
	left, err := parseID(args[0])
	if err != nil {
		return err
	}
	right, err := parseID(args[1])
	if err != nil {
		return err
	}
	boundary, err := parseTime(args[2])
	if err != nil {
		return err
	}
	return s.eng.Roll(left, right, boundary)
}

func (s *shell) cmdCopy(args []string) error {
	if len(args) == 0 {
		s.eng.CopySelection()
		fmt.Printf("copied %d clips\n", s.eng.ClipboardLen())
		return nil
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	s.eng.Copy(ids...)
	fmt.Printf("copied %d clips\n", s.eng.ClipboardLen())
	return nil
}

func (s *shell) cmdCut(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: cut <clip...>")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	return s.eng.Cut(ids...)
}

func (s *shell) cmdPaste(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: paste <at> [track-index]")
	}
	at, err := parseTime(args[0])
	if err != nil {
		return err
	}
	track := engine.InvalidID
	if len(args) > 1 {
		if track, err = s.trackByIndex(args[1]); err != nil {
			return err
		}
	}
	ids, err := s.eng.Paste(at, track)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Printf("clip %d\n", id)
	}
	return nil
}

func (s *shell) cmdDuplicate(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dup <clip...>")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	created, err := s.eng.Duplicate(ids...)
	if err != nil {
		return err
	}
	for _, id := range created {
		fmt.Printf("clip %d\n", id)
	}
	return nil
}

func (s *shell) cmdSelect(args []string) error {
	if len(args) == 0 {
		for _, id := range s.eng.SelectedIDs() {
			fmt.Printf("  clip %d\n", id)
		}
		return nil
	}
	switch args[0] {
	case "clear":
		s.eng.ClearSelection()
		return nil
	case "extend":
		if len(args) < 2 {
			return errors.New("usage: select extend <clip>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		s.eng.SelectExtend(id)
		fmt.Printf("%d selected\n", s.eng.SelectionLen())
		return nil
	case "region":
		if len(args) < 3 {
			return errors.New("usage: select region <start> <end> [lo hi]")
		}
		start, err := parseTime(args[1])
		if err != nil {
			return err
		}
		end, err := parseTime(args[2])
		if err != nil {
			return err
		}
		lo, hi := 0, len(s.eng.Tracks())-1
		if len(args) > 4 {
			if lo, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("bad track index %q", args[3])
			}
			if hi, err = strconv.Atoi(args[4]); err != nil {
				return fmt.Errorf("bad track index %q", args[4])
			}
		}
		s.eng.SelectRegion(timecode.NewRange(start, end), lo, hi, engine.SelectNormal)
		fmt.Printf("%d selected\n", s.eng.SelectionLen())
		return nil
	default:
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		s.eng.Select(engine.SelectNormal, ids...)
		fmt.Printf("%d selected\n", s.eng.SelectionLen())
		return nil
	}
}

func (s *shell) cmdMarker(args []string) error {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return errors.New("usage: marker add <name> <at>")
		}
		at, err := parseTime(args[2])
		if err != nil {
			return err
		}
		id, err := s.eng.AddMarker(timeline.NewMarker(args[1], at))
		if err != nil {
			return err
		}
		fmt.Printf("marker %d\n", id)
		return nil
	case "ls":
		for _, id := range s.eng.Markers() {
			mk, ok := s.eng.Marker(id)
			if !ok {
				continue
			}
			fmt.Printf("  [%d] %-20s %s\n", id, mk.Name, mk.Range.Start)
		}
		return nil
	case "rm":
		if len(args) < 2 {
			return errors.New("usage: marker rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.eng.RemoveMarker(id)
	default:
		return fmt.Errorf("unknown marker command %q", args[0])
	}
}

func (s *shell) cmdHistory() {
	undo := s.eng.UndoInfo()
	if len(undo) == 0 {
		fmt.Println("history empty")
		return
	}
	for i, info := range undo {
		fmt.Printf("  %2d  %s\n", len(undo)-i, info.Description)
	}
}

func (s *shell) cmdPlayhead(args []string) error {
	if len(args) == 0 {
		fmt.Printf("playhead at %s of %s\n", s.eng.Playhead(), s.eng.Duration())
		return nil
	}
	t, err := parseTime(args[0])
	if err != nil {
		return err
	}
	s.eng.SetPlayhead(t)
	return nil
}

func (s *shell) cmdSnap(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: snap <time>")
	}
	t, err := parseTime(args[0])
	if err != nil {
		return err
	}
	if snapped, ok := s.eng.Snap(t); ok {
		fmt.Printf("%s\n", snapped)
	} else {
		fmt.Println("no snap target")
	}
	return nil
}

func (s *shell) cmdList() {
	for _, trackID := range s.eng.Tracks() {
		t, ok := s.eng.Track(trackID)
		if !ok {
			continue
		}
		fmt.Printf("[%d] %s (%s)\n", t.Index, t.Name, t.Type)
		for _, clipID := range s.eng.ClipsOnTrack(trackID) {
			c, ok := s.eng.Clip(clipID)
			if !ok {
				continue
			}
			name := c.Name
			if name == "" {
				name = "(unnamed)"
			}
			extra := ""
			if c.Speed != 1 && c.Speed != 0 {
				extra = fmt.Sprintf(" @%gx", c.Speed)
			}
			if c.Locked {
				extra += " locked"
			}
			fmt.Printf("    %4d  %-24s %s - %s%s\n",
				clipID, name, c.Timeline.Start, c.Timeline.End, extra)
		}
	}
	fmt.Printf("duration %s, playhead %s\n", s.eng.Duration(), s.eng.Playhead())
}

func (s *shell) cmdSave(args []string) error {
	path := s.path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errors.New("usage: save <path>")
	}
	if err := s.eng.SaveFile(path); err != nil {
		return err
	}
	s.path = path
	if fi, err := os.Stat(path); err == nil {
		fmt.Printf("saved %s (%s)\n", path, humanize.Bytes(uint64(fi.Size())))
	}
	return nil
}

func (s *shell) cmdLoad(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: load <path>")
	}
	if err := s.eng.LoadFile(args[0]); err != nil {
		return err
	}
	s.path = args[0]
	fmt.Printf("loaded %s: %d tracks\n", args[0], len(s.eng.Tracks()))
	return nil
}

func (s *shell) cmdExport(args []string) error {
	path := "project.json"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := s.eng.ExportJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("exported %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	return nil
}

func (s *shell) cmdImport(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: import <path.json>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := s.eng.ImportJSON(data); err != nil {
		return err
	}
	fmt.Printf("imported %s: %d tracks\n", args[0], len(s.eng.Tracks()))
	return nil
}
