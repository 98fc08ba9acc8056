package extracta

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tsawler/extracta/imageref"
	"github.com/tsawler/extracta/imageutil"
	"github.com/tsawler/extracta/schema"
	"github.com/tsawler/extracta/tables"
	"github.com/tsawler/extracta/walk"
)

// assembler folds raw walker units into the normalized document, resolving
// image references as it goes. One assembler serves one document.
type assembler struct {
	kind     schema.UnitKind
	policy   tables.HeaderPolicy
	resolver *imageref.Resolver

	images   []schema.Image
	warnings []Warning

	// nearest non-empty text block walked so far in the current unit
	preceding string
	unitIndex int
}

func newAssembler(kind schema.UnitKind, cfg imageref.Config) *assembler {
	policy := tables.HeaderFirstRow
	if kind == schema.KindSheets {
		policy = tables.HeaderHeuristic
	}
	return &assembler{
		kind:     kind,
		policy:   policy,
		resolver: imageref.New(cfg),
	}
}

// assemble builds the document from walked units and validates it.
func (a *assembler) assemble(units []walk.Unit) (*schema.Document, error) {
	doc := &schema.Document{Kind: a.kind}
	for _, unit := range units {
		a.unitIndex = unit.Index
		a.preceding = ""

		u := &schema.Unit{Index: unit.Index, Title: unit.Title}
		u.Items = a.items(unit.Events)
		doc.Units = append(doc.Units, u)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvariant, err)
	}
	return doc, nil
}

// items converts one event sequence. Called recursively for groups; the
// preceding-text tracker spans group boundaries, in walk order.
func (a *assembler) items(events []walk.Event) []schema.Item {
	var items []schema.Item
	for _, ev := range events {
		switch ev.Type {
		case walk.EventText:
			block := &schema.TextBlock{
				Text:         ev.Text,
				HeadingLevel: ev.HeadingLevel,
				Failed:       ev.Failed,
			}
			if ev.Failed {
				a.warn(a.unitIndex, "text recognition failed")
			} else if ev.Text != "" {
				a.preceding = ev.Text
			}
			items = append(items, block)

		case walk.EventGrid:
			if ev.Grid == nil {
				continue
			}
			items = append(items, tables.Structure(*ev.Grid, a.policy))

		case walk.EventImage:
			if ev.Image == nil || len(ev.Image.Data) == 0 {
				continue
			}
			ref, img := a.resolveImage(ev.Image)
			a.images = append(a.images, img)
			items = append(items, ref)

		case walk.EventGroup:
			if children := a.items(ev.Group); len(children) > 0 {
				items = append(items, &schema.Group{Items: children})
			}
		}
	}
	return items
}

// resolveImage normalizes the image payload and derives its reference and
// filename.
func (a *assembler) resolveImage(src *walk.ImageData) (*schema.ImageRef, schema.Image) {
	data, ext := src.Data, src.Ext
	if imageutil.NeedsNormalization(ext) {
		converted, newExt, err := imageutil.ToPNG(data, ext)
		if err != nil {
			a.warn(a.unitIndex, fmt.Sprintf("image normalization failed (%s kept): %v", ext, err))
			log.Debug().Int("unit", a.unitIndex).Str("ext", ext).Err(err).Msg("image normalization failed")
		} else {
			data, ext = converted, newExt
		}
	}

	ref := a.resolver.Resolve(imageref.Request{
		Kind:          a.kind,
		UnitIndex:     a.unitIndex,
		Ext:           ext,
		ColumnHeader:  src.ColumnHeader,
		GroupText:     src.GroupText,
		Hint:          src.Hint,
		PrecedingText: a.preceding,
	})
	return &ref, schema.Image{Filename: ref.Filename, Data: data}
}

func (a *assembler) warn(unit int, msg string) {
	a.warnings = append(a.warnings, Warning{Unit: unit, Message: msg})
}
