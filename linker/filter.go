package linker

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/abi/dump"
)

// linkDecl writes the elements of one category that pass both the header
// provenance filter and symbolFilter. elems must be in key order.
func (l *Linker) linkDecl(dst dump.Writer, kind abi.Kind, elems []abi.Linkable, symbolFilter SymbolFilter) error {
	stats := &l.stats.Categories[kind]
	for _, e := range elems {
		stats.Considered++
		if !dump.IsExported(e, l.truth.ExportedHeaders) {
			stats.DroppedByProvenance++
			continue
		}
		if !symbolFilter(e.LinkerSetKey()) {
			stats.DroppedBySymbol++
			continue
		}
		if err := dst.AddLinkable(e); err != nil {
			return fmt.Errorf("failed to add %s element %s to the linked dump: %w", kind, e.LinkerSetKey(), err)
		}
		stats.Emitted++
	}

	l.logger.WithFields(logrus.Fields{
		"category":              kind.String(),
		"considered":            stats.Considered,
		"dropped_by_provenance": stats.DroppedByProvenance,
		"dropped_by_symbol":     stats.DroppedBySymbol,
		"emitted":               stats.Emitted,
	}).Debug("Linked category")
	return nil
}
