// Package docx walks DOCX (Office Open XML WordprocessingML) files,
// segmenting the body into sections at the top-most heading level present.
package docx

import "encoding/xml"

// documentXML represents the structure of word/document.xml
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    *bodyXML `xml:"body"`
}

// bodyXML holds the document body in stored order. Paragraphs and tables
// interleave, so decoding collects them into one ordered element list.
type bodyXML struct {
	Elements []bodyElement
}

// bodyElement is one body child; exactly one field is set.
type bodyElement struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				var p paragraphXML
				if err := d.DecodeElement(&p, &el); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Paragraph: &p})
			case "tbl":
				var tbl tableXML
				if err := d.DecodeElement(&tbl, &el); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Table: &tbl})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	Properties paragraphPropsXML `xml:"pPr"`
	Runs       []runXML          `xml:"r"`
	Hyperlinks []hyperlinkXML    `xml:"hyperlink"`
}

// paragraphPropsXML represents paragraph properties (<w:pPr>).
type paragraphPropsXML struct {
	Style      styleRefXML   `xml:"pStyle"`
	OutlineLvl outlineLvlXML `xml:"outlineLvl"`
}

type styleRefXML struct {
	Val string `xml:"val,attr"`
}

// outlineLvlXML represents outline level (0-based in OOXML).
type outlineLvlXML struct {
	Val string `xml:"val,attr"`
}

// runXML represents a text run (<w:r>).
type runXML struct {
	Text    []textXML    `xml:"t"`
	Tabs    []tabXML     `xml:"tab"`
	Breaks  []breakXML   `xml:"br"`
	Drawing []drawingXML `xml:"drawing"`
}

// textXML represents text content (<w:t>).
type textXML struct {
	Space string `xml:"space,attr"`
	Value string `xml:",chardata"`
}

type tabXML struct{}

// breakXML represents a break (line or page).
type breakXML struct {
	Type string `xml:"type,attr"`
}

// drawingXML represents an embedded drawing/image.
type drawingXML struct {
	Inline *inlineXML `xml:"inline"`
	Anchor *anchorXML `xml:"anchor"`
}

type inlineXML struct {
	Blip *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

type anchorXML struct {
	Blip *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

// blipXML represents an image reference.
type blipXML struct {
	Embed string `xml:"embed,attr"` // Relationship ID
}

// hyperlinkXML represents a hyperlink.
type hyperlinkXML struct {
	Runs []runXML `xml:"r"`
}

// tableXML represents a table (<w:tbl>).
type tableXML struct {
	Rows []tableRowXML `xml:"tr"`
}

// tableRowXML represents a table row (<w:tr>).
type tableRowXML struct {
	Cells []tableCellXML `xml:"tc"`
}

// tableCellXML represents a table cell (<w:tc>).
type tableCellXML struct {
	Properties cellPropsXML   `xml:"tcPr"`
	Paragraphs []paragraphXML `xml:"p"`
}

// cellPropsXML represents cell properties.
type cellPropsXML struct {
	GridSpan gridSpanXML `xml:"gridSpan"`
	VMerge   *vMergeXML  `xml:"vMerge"`
}

// gridSpanXML represents column span.
type gridSpanXML struct {
	Val string `xml:"val,attr"`
}

// vMergeXML represents vertical merge: Val "restart" starts a merge, an
// empty Val continues one.
type vMergeXML struct {
	Val string `xml:"val,attr"`
}

// stylesXML represents word/styles.xml.
type stylesXML struct {
	XMLName xml.Name   `xml:"styles"`
	Styles  []styleXML `xml:"style"`
}

type styleXML struct {
	StyleID string        `xml:"styleId,attr"`
	Name    styleRefXML   `xml:"name"`
	PPr     stylePPrXML   `xml:"pPr"`
}

type stylePPrXML struct {
	OutlineLvl outlineLvlXML `xml:"outlineLvl"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
	Creator string   `xml:"creator"`
}
