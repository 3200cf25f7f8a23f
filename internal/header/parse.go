package header

import (
	"github.com/xyproto/hexpatch/internal/notify"
	"github.com/xyproto/hexpatch/internal/vfs"
)

// Parse detects data's object-file format by canonical magic and builds a
// Header from it (design §3-§4.2). Parse failures never propagate: they
// degrade to Header::None and a log entry, so the rest of the module can
// always open arbitrary, possibly non-executable, bytes for raw hex
// editing (design §5, §7).
func Parse(data []byte, path string, fs vfs.FileSystem) (*Header, *notify.Log) {
	log := notify.New()

	var (
		g   GenericHeader
		err error
	)
	switch {
	case looksLikeELF(data):
		g, err = parseELF(data)
	case looksLikePE(data):
		g, err = parsePE(data, path, fs, log)
	case looksLikeMachO(data):
		g, err = parseMachO(data)
	case looksLikeXCOFF(data):
		g, err = parseXCOFF(data)
	case looksLikeCOFF(data):
		g, err = parseCOFF(data)
	case looksLikeCOFFBig(data):
		g, err = parseCOFFBig(data)
	default:
		log.Info("unrecognized object format, opening as raw bytes")
		return None(), log
	}
	if err != nil {
		log.Info("header parse failed: %v", err)
		return None(), log
	}
	g.Sections = discardEmpty(g.Sections)
	return &Header{Parsed: true, Generic: g}, log
}
