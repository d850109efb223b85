// mod8_lua_sink.go - forwards playback events into a user-supplied Lua script
//
// Lets a host script a visualizer, a playlist controller, or a live
// annotation tool without recompiling: define any subset of
// on_song_load/on_play_pattern/on_play_row_begin/on_play_note/
// on_play_row_end/on_play_song_end/on_message as Lua globals and they're
// called with the same arguments the Go EventSink methods receive. A script
// that defines none of them behaves like noSink.

package main

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// LuaEventSink adapts EventSink calls into global-function lookups in an
// embedded gopher-lua state.
type LuaEventSink struct {
	state *lua.LState
}

// NewLuaEventSink loads and runs scriptPath once (for top-level setup), then
// returns a sink that dispatches playback events into whichever globals the
// script defined.
func NewLuaEventSink(scriptPath string) (*LuaEventSink, error) {
	state := lua.NewState()
	if err := state.DoFile(scriptPath); err != nil {
		state.Close()
		return nil, err
	}
	return &LuaEventSink{state: state}, nil
}

// Close releases the Lua state. Safe to call once playback has stopped.
func (s *LuaEventSink) Close() {
	s.state.Close()
}

func (s *LuaEventSink) call(name string, args ...lua.LValue) {
	fn := s.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return
	}
	err := s.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lua %s: %v\n", name, err)
	}
}

func (s *LuaEventSink) OnSongLoad(song SongInfo) {
	s.call("on_song_load", lua.LString(song.Name), lua.LNumber(song.OrderCount), lua.LNumber(song.PatternCount))
}

func (s *LuaEventSink) OnSongLoadError(song SongInfo) {
	s.call("on_song_load_error")
}

func (s *LuaEventSink) OnSampleLoad(sampleNo uint8, samp sample) {
	s.call("on_sample_load", lua.LNumber(sampleNo), lua.LNumber(samp.volume))
}

func (s *LuaEventSink) OnPlayPattern(songPosition, pattern uint8) {
	s.call("on_play_pattern", lua.LNumber(songPosition), lua.LNumber(pattern))
}

func (s *LuaEventSink) OnPlayRowBegin(row uint8) {
	s.call("on_play_row_begin", lua.LNumber(row))
}

func (s *LuaEventSink) OnPlayNote(channel uint8, period uint16, sampleNo, effect, param uint8) {
	s.call("on_play_note",
		lua.LNumber(channel), lua.LNumber(period), lua.LNumber(sampleNo),
		lua.LNumber(effect), lua.LNumber(param))
}

func (s *LuaEventSink) OnPlayRowEnd() {
	s.call("on_play_row_end")
}

func (s *LuaEventSink) OnPlaySongEnd(song SongInfo) {
	s.call("on_play_song_end")
}

func (s *LuaEventSink) OnMessage(code Message, args ...int) {
	luaArgs := make([]lua.LValue, 0, len(args)+1)
	luaArgs = append(luaArgs, lua.LNumber(code))
	for _, a := range args {
		luaArgs = append(luaArgs, lua.LNumber(a))
	}
	s.call("on_message", luaArgs...)
}
