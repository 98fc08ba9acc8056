// Package pptx walks PPTX (Office Open XML Presentation) files slide by
// slide, yielding content events in each slide's stored shape order.
package pptx

import "encoding/xml"

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName xml.Name    `xml:"presentation"`
	SlideSz *slideSzXML `xml:"sldSz"`
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// slideXML represents a ppt/slides/slide*.xml file structure.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	SpTree spTreeXML `xml:"spTree"`
}

// shapeNode is one entry in a shape tree, tagged by which field is set.
// The shape tree's stored order is the slide's reading order, so the
// standard one-slice-per-element decoding is not usable here.
type shapeNode struct {
	Sp    *spXML
	Pic   *picXML
	Frame *graphicFrameXML
	Group *grpSpXML
}

// spTreeXML represents the shape tree containing all shapes on a slide,
// preserving their stored order.
type spTreeXML struct {
	Shapes []shapeNode
}

func (t *spTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	shapes, err := decodeShapes(d, start)
	t.Shapes = shapes
	return err
}

// decodeShapes consumes children of a shape container element in order.
func decodeShapes(d *xml.Decoder, start xml.StartElement) ([]shapeNode, error) {
	var shapes []shapeNode
	for {
		tok, err := d.Token()
		if err != nil {
			return shapes, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sp":
				var sp spXML
				if err := d.DecodeElement(&sp, &el); err != nil {
					return shapes, err
				}
				shapes = append(shapes, shapeNode{Sp: &sp})
			case "pic":
				var pic picXML
				if err := d.DecodeElement(&pic, &el); err != nil {
					return shapes, err
				}
				shapes = append(shapes, shapeNode{Pic: &pic})
			case "graphicFrame":
				var gf graphicFrameXML
				if err := d.DecodeElement(&gf, &el); err != nil {
					return shapes, err
				}
				shapes = append(shapes, shapeNode{Frame: &gf})
			case "grpSp":
				var grp grpSpXML
				if err := d.DecodeElement(&grp, &el); err != nil {
					return shapes, err
				}
				shapes = append(shapes, shapeNode{Group: &grp})
			default:
				if err := d.Skip(); err != nil {
					return shapes, err
				}
			}
		case xml.EndElement:
			return shapes, nil
		}
	}
}

type cNvPrXML struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// spXML represents a shape element.
type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	SpPr   spPrXML    `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
	NvPr  nvPrXML  `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"` // Placeholder info
}

type phXML struct {
	Type string `xml:"type,attr"` // title, body, ctrTitle, subTitle, etc.
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

type xfrmXML struct {
	Off offXML `xml:"off"`
	Ext extXML `xml:"ext"`
}

type offXML struct {
	X int64 `xml:"x,attr"` // X position in EMUs
	Y int64 `xml:"y,attr"` // Y position in EMUs
}

type extXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// txBodyXML represents text body content.
type txBodyXML struct {
	P []pXML `xml:"p"` // Paragraphs
}

// pXML represents a paragraph.
type pXML struct {
	R   []rXML  `xml:"r"`   // Text runs
	Fld []fldXML `xml:"fld"` // Fields (like slide number)
}

// rXML represents a text run.
type rXML struct {
	T string `xml:"t"` // Text content
}

type fldXML struct {
	Type string `xml:"type,attr"`
	T    string `xml:"t"` // Field value
}

// picXML represents a picture element.
type picXML struct {
	NvPicPr  nvPicPrXML  `xml:"nvPicPr"`
	BlipFill blipFillXML `xml:"blipFill"`
	SpPr     spPrXML     `xml:"spPr"`
}

type nvPicPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type blipFillXML struct {
	Blip blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"embed,attr"` // r:embed relationship ID
}

// graphicFrameXML represents a graphic frame (tables, charts).
type graphicFrameXML struct {
	Xfrm    *xfrmXML   `xml:"xfrm"`
	Graphic graphicXML `xml:"graphic"`
}

type graphicXML struct {
	GraphicData graphicDataXML `xml:"graphicData"`
}

type graphicDataXML struct {
	URI string  `xml:"uri,attr"`
	Tbl *tblXML `xml:"tbl"` // Table
}

// tblXML represents a table.
type tblXML struct {
	TblGrid tblGridXML `xml:"tblGrid"`
	Tr      []trXML    `xml:"tr"` // Table rows
}

type tblGridXML struct {
	GridCol []gridColXML `xml:"gridCol"`
}

type gridColXML struct {
	W int64 `xml:"w,attr"` // Width in EMUs
}

type trXML struct {
	Tc []tcXML `xml:"tc"` // Table cells
}

type tcXML struct {
	TxBody   *txBodyXML `xml:"txBody"`
	RowSpan  int        `xml:"rowSpan,attr"`
	GridSpan int        `xml:"gridSpan,attr"`
	VMerge   *int       `xml:"vMerge,attr"` // Continuation of a vertical merge
	HMerge   *int       `xml:"hMerge,attr"` // Continuation of a horizontal merge
}

// grpSpXML represents a group of shapes. Children keep stored order for
// the same reason the shape tree does.
type grpSpXML struct {
	GrpSpPr grpSpPrXML `xml:"grpSpPr"`
	Shapes  []shapeNode
}

func (g *grpSpXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "grpSpPr":
				if err := d.DecodeElement(&g.GrpSpPr, &el); err != nil {
					return err
				}
			case "sp", "pic", "graphicFrame", "grpSp":
				// Re-enter the shared child decoder for this one element.
				nodes, err := decodeOne(d, el)
				if err != nil {
					return err
				}
				g.Shapes = append(g.Shapes, nodes)
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

func decodeOne(d *xml.Decoder, el xml.StartElement) (shapeNode, error) {
	switch el.Name.Local {
	case "sp":
		var sp spXML
		err := d.DecodeElement(&sp, &el)
		return shapeNode{Sp: &sp}, err
	case "pic":
		var pic picXML
		err := d.DecodeElement(&pic, &el)
		return shapeNode{Pic: &pic}, err
	case "graphicFrame":
		var gf graphicFrameXML
		err := d.DecodeElement(&gf, &el)
		return shapeNode{Frame: &gf}, err
	default:
		var grp grpSpXML
		err := d.DecodeElement(&grp, &el)
		return shapeNode{Group: &grp}, err
	}
}

type grpSpPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
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
