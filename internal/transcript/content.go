package transcript

import "encoding/json"

// content is the body of one transcript message: either a plain string or a
// sequence of typed blocks. Decoding tries the string form first, then the
// block form; any other shape yields an empty body rather than an error.
type content struct {
	text   string
	blocks []contentBlock
	plain  bool
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = s
		c.plain = true
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.blocks = blocks
	}
	return nil
}

// Segments returns the independent text segments of the body, in order.
// A plain string is a single segment; block content contributes one segment
// per "text" block. Non-text blocks (tool calls, attachments) are ignored.
func (c content) Segments() []string {
	if c.plain {
		return []string{c.text}
	}
	var segs []string
	for _, b := range c.blocks {
		if b.Type == "text" {
			segs = append(segs, b.Text)
		}
	}
	return segs
}
