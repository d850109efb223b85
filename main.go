// main.go - Main entry point for the mod8 MOD player

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nA Protracker MOD player for severely constrained environments, also runnable hosted.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "once":
		return ModePlaySongOnce, nil
	case "loonce":
		return ModeLoopSongOnce, nil
	case "loop":
		return ModeLoopSong, nil
	case "pattern":
		return ModeLoopPattern, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want once|loonce|loop|pattern)", s)
	}
}

func main() {
	boilerPlate()

	fs := flag.NewFlagSet("mod8", flag.ExitOnError)
	modPath := fs.String("mod", "", "path to a Protracker MOD file to play")
	rate := fs.Int("rate", samplingFreqDefault, "mixing frequency in Hz")
	modeFlag := fs.String("mode", "loop", "playback mode: once|loonce|loop|pattern")
	amigaPeriods := fs.Bool("amiga-periods", false, "clamp periods to genuine Paula hardware range")
	stopOnF00 := fs.Bool("stop-on-f00", false, "treat effect F00 as an explicit stop")
	downsample := fs.Bool("downsample", false, "halve the effective per-channel mixing rate")
	attenuation := fs.Uint("attenuation", 0, "right-shift applied to every channel's volume")
	luaScript := fs.String("lua", "", "Lua script receiving playback event callbacks")
	quiet := fs.Bool("quiet", false, "suppress the terminal status line")
	fs.Parse(os.Args[1:])

	if *modPath == "" {
		fmt.Println("Usage: mod8 -mod <file.mod> [options]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*modPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	mode, err := parseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	opts := DefaultOptions()
	opts.MixingFreq = uint32(*rate)
	opts.AmigaPeriods = *amigaPeriods
	opts.StopOnF00 = *stopOnF00
	opts.VolumeAttenuationLog2 = uint8(*attenuation)
	if *downsample {
		opts.DownsamplingFactorLog2 = 1
	}

	player := NewPlayer(opts)

	var sink EventSink
	if *luaScript != "" {
		luaSink, err := NewLuaEventSink(*luaScript)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading Lua script:", err)
			os.Exit(1)
		}
		defer luaSink.Close()
		sink = luaSink
	} else if !*quiet {
		sink = &terminalStatusSink{}
	}
	if sink != nil {
		player.SetEventSink(sink)
	}

	if !player.Load(data) {
		fmt.Fprintln(os.Stderr, "Error: unsupported or corrupt MOD file")
		os.Exit(1)
	}

	out, err := NewOtoPlayer(int(opts.MixingFreq))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	out.SetupPlayer(player)
	out.Start()
	defer out.Close()

	player.Play(mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return watchKeyboard(ctx, cancel) })
	g.Go(func() error { return watchPlayback(ctx, cancel, player) })

	_ = g.Wait()
}

// watchKeyboard puts stdin into raw mode so a single 'q' keypress can stop
// playback without waiting for Enter. Returns nil on any read error (e.g.
// stdin isn't a terminal, common under test harnesses and pipes).
func watchKeyboard(ctx context.Context, cancel context.CancelFunc) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return nil
		}
		if buf[0] == 'q' || buf[0] == 'Q' || buf[0] == 3 {
			cancel()
			return nil
		}
	}
}

// watchPlayback polls the Player until it stops playing (reaching the end
// of a non-looping song) or the context is cancelled.
func watchPlayback(ctx context.Context, cancel context.CancelFunc, player *Player) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !player.IsPlaying() {
				cancel()
				return nil
			}
		}
	}
}

// terminalStatusSink prints a line per pattern/row transition; the default
// when neither -quiet nor -lua is given.
type terminalStatusSink struct {
	noSink
}

func (s *terminalStatusSink) OnSongLoad(song SongInfo) {
	fmt.Printf("Loaded %q (%s, %d orders, %d patterns)\n", song.Name, song.Tag, song.OrderCount, song.PatternCount)
}

func (s *terminalStatusSink) OnSongLoadError(SongInfo) {
	fmt.Println("Failed to load song")
}

func (s *terminalStatusSink) OnPlayPattern(songPosition, pattern uint8) {
	fmt.Printf("\n-- order %d, pattern %d --\n", songPosition, pattern)
}

func (s *terminalStatusSink) OnPlaySongEnd(SongInfo) {
	fmt.Println("\nPlayback finished")
}

func (s *terminalStatusSink) OnMessage(code Message, args ...int) {
	fmt.Printf("warning: message %d %v\n", code, args)
}
