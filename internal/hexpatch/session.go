// Package hexpatch wires the byte store, header parser, assembly model,
// patcher, and navigator into the single-owner Session that the command
// surface in design §6 is built from: open, save, patch, jump, find,
// find_symbol, undo, redo. It is the single logical task that owns all
// mutable state per design §5 ("single-threaded cooperative"); no
// goroutines are spawned here.
package hexpatch

import (
	"strconv"
	"strings"

	"github.com/xyproto/hexpatch/internal/asmmodel"
	"github.com/xyproto/hexpatch/internal/codec"
	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/herr"
	"github.com/xyproto/hexpatch/internal/nav"
	"github.com/xyproto/hexpatch/internal/notify"
	"github.com/xyproto/hexpatch/internal/patch"
	"github.com/xyproto/hexpatch/internal/store"
	"github.com/xyproto/hexpatch/internal/vfs"
)

// Session is the single owner of an open file's mutable state (design
// §3 lifecycle, §5). A Session is created empty and populated by Open;
// Open replaces everything a previous Open or OpenBytes built.
type Session struct {
	FS     vfs.FileSystem
	Codecs *codec.Registry
	Log    *notify.Log

	HistoryLimit int
	Width        int
	Height       int

	Path    string
	Store   *store.ByteStore
	Header  *header.Header
	Model   *asmmodel.Model
	Nav     *nav.Navigator
	Patcher *patch.Patcher
}

// New returns an empty Session bound to fs and codecs, ready for Open.
func New(fs vfs.FileSystem, codecs *codec.Registry, historyLimit, width, height int) *Session {
	return &Session{
		FS:           fs,
		Codecs:       codecs,
		Log:          notify.New(),
		HistoryLimit: historyLimit,
		Width:        width,
		Height:       height,
	}
}

// Open implements design §6's "open path": reads path via FS, parses its
// header, builds the assembly model, and resets history and the cursor
// (design §3 lifecycle). A read failure is logged and returned, and the
// previous Session state, if any, is left untouched (design §5: "On an
// unexpected error... keeps the previous state"). A header that fails to
// parse is not an error here: header.Parse's log entries are copied into
// s.Log and the file opens with Header::None.
func (s *Session) Open(path string) error {
	data, err := s.FS.Read(path)
	if err != nil {
		wrapped := herr.Wrap(herr.IoError, err, "open %s", path)
		s.Log.Error("%v", wrapped)
		return wrapped
	}
	hdr, plog := header.Parse(data, path, s.FS)
	for _, n := range plog.Entries() {
		s.Log.Push(n.Severity, "%s", n.Message)
	}
	s.OpenBytes(path, data, hdr)
	return nil
}

// OpenBytes populates the Session from already-read data and an
// already-parsed header, for callers (tests, SSH transports that already
// fetched the bytes) that don't want Open's own FS.Read.
func (s *Session) OpenBytes(path string, data []byte, hdr *header.Header) {
	if hdr == nil {
		hdr = header.None()
	}
	arch := header.ArchX86_64
	if hdr.Parsed {
		arch = hdr.Generic.Architecture
	}
	dec, enc := s.Codecs.For(arch)

	s.Store = store.New(data, s.HistoryLimit)
	s.Header = hdr
	s.Model = asmmodel.Build(s.Store.Bytes(), hdr, dec, symbolsOf(hdr))
	s.Patcher = patch.New(s.Store, s.Model, hdr, dec, enc)
	s.Nav = nav.New(s.Store, hdr, s.Width, s.Height)
	s.Path = path
}

// Save implements design §6's "save [as path]": a full-content write of
// the current bytes to path (or the file's own path when path == ""). A
// successful save clears the dirty flag; history is untouched (design
// §7: "A save operation may be aborted by error; the ByteStore and its
// history are not rolled back").
func (s *Session) Save(path string) error {
	target := s.Path
	if path != "" {
		target = path
	}
	if err := s.FS.Write(target, s.Store.Bytes()); err != nil {
		wrapped := herr.Wrap(herr.IoError, err, "save %s", target)
		s.Log.Error("%v", wrapped)
		return wrapped
	}
	s.Store.MarkSaved()
	s.Path = target
	return nil
}

// Patch implements design §6's "patch asm": assembles src for the
// current cursor position and architecture and splices the result onto
// the file. Assembly errors are reported to the log and absorbed here,
// matching design §4.4 ("Assembly errors are reported, not propagated;
// no state change").
func (s *Session) Patch(src string) {
	cursor := s.Nav.Position().GlobalByteIndex
	if _, err := s.Patcher.Patch(cursor, src); err != nil {
		s.Log.Error("%v", err)
	}
}

// PatchNibble implements the single-hex-digit edit path (design §4.4).
func (s *Session) PatchNibble(highNibble bool, value byte) {
	cursor := s.Nav.Position().GlobalByteIndex
	if _, err := s.Patcher.PatchNibble(cursor, highNibble, value); err != nil {
		s.Log.Error("%v", err)
	}
}

// Jump implements design §6's "jump target" / §6's textual jump-box
// prefix syntax: "0x…" is physical, "v0x…" is virtual, anything else is
// tried as a symbol name and then, on miss, a section name. Invalid
// forms are reported, never silently treated as zero.
func (s *Session) Jump(target string) error {
	switch {
	case strings.HasPrefix(target, "v0x"), strings.HasPrefix(target, "V0x"):
		addr, err := strconv.ParseUint(target[1:], 0, 64)
		if err != nil {
			e := herr.Wrap(herr.ParseError, err, "invalid virtual address %q", target)
			s.Log.Error("%v", e)
			return e
		}
		if err := s.Nav.JumpTo(addr, true); err != nil {
			s.Log.Error("%v", err)
			return err
		}
		return nil
	case strings.HasPrefix(target, "0x"):
		addr, err := strconv.ParseUint(target, 0, 64)
		if err != nil {
			e := herr.Wrap(herr.ParseError, err, "invalid address %q", target)
			s.Log.Error("%v", e)
			return e
		}
		if err := s.Nav.JumpTo(addr, false); err != nil {
			s.Log.Error("%v", err)
			return err
		}
		return nil
	default:
		if addr, ok := s.Header.SymbolToAddress(target); ok {
			return s.Nav.JumpTo(addr, true)
		}
		if sec, ok := s.Header.SectionByName(target); ok {
			return s.Nav.JumpTo(sec.VirtualAddress, true)
		}
		e := herr.New(herr.FuzzyMissing, "no symbol or section named %q", target)
		s.Log.Warning("%v", e)
		return e
	}
}

// Find implements design §6's "find text".
func (s *Session) Find(text string) bool {
	ok := s.Nav.FindText([]byte(text))
	if !ok {
		s.Log.Warning("%q not found", text)
	}
	return ok
}

// FindSymbol implements design §6's "find_symbol name": returns
// fuzzy-scored candidates without moving the cursor; JumpToSymbol jumps
// to a chosen one.
func (s *Session) FindSymbol(filter string) []nav.SymbolMatch {
	matches := s.Nav.FindSymbol(filter)
	if len(matches) == 0 {
		s.Log.Warning("no symbols match %q", filter)
	}
	return matches
}

// JumpToSymbol jumps to a symbol chosen from FindSymbol's results.
func (s *Session) JumpToSymbol(name string) error {
	if err := s.Nav.JumpToSymbol(name); err != nil {
		s.Log.Warning("%v", err)
		return err
	}
	return nil
}

// Undo implements design §6's "undo": reverts the most recent change and
// re-syncs the assembly model over the reverted byte range. change.Offset
// need not be an instruction boundary (PatchNibble can write mid-
// instruction), so — mirroring Patcher.PatchBytes (patch.go) — the
// instruction's file_address is resolved from the model before the bytes
// move, and the byte count EditAssembly is told to re-sync is widened by
// however far change.Offset sat past that boundary.
func (s *Session) Undo() {
	change, ok := s.Store.HistoryLog().PeekUndo()
	if !ok {
		return
	}
	fromByte := s.Model.InstructionStart(change.Offset)
	s.Store.Undo()
	s.Model.EditAssembly(s.Store.Bytes(), s.decoder(), symbolsOf(s.Header), fromByte, len(change.Old)+(change.Offset-fromByte))
}

// Redo implements design §6's "redo". See Undo for why fromByte is
// resolved against the instruction boundary rather than change.Offset.
func (s *Session) Redo() {
	change, ok := s.Store.HistoryLog().PeekRedo()
	if !ok {
		return
	}
	fromByte := s.Model.InstructionStart(change.Offset)
	s.Store.Redo()
	s.Model.EditAssembly(s.Store.Bytes(), s.decoder(), symbolsOf(s.Header), fromByte, len(change.New)+(change.Offset-fromByte))
}

// Dirty reports whether the in-memory bytes differ from the last saved
// state (design §7 "Dirty-flag discipline").
func (s *Session) Dirty() bool {
	return s.Store.Dirty()
}

func (s *Session) decoder() codec.Decoder {
	arch := header.ArchX86_64
	if s.Header != nil && s.Header.Parsed {
		arch = s.Header.Generic.Architecture
	}
	dec, _ := s.Codecs.For(arch)
	return dec
}

func symbolsOf(hdr *header.Header) *header.SymbolTable {
	if hdr != nil && hdr.Parsed {
		return hdr.Generic.Symbols
	}
	return nil
}
