package domain

// Anchor 錨文字連結 (outgoing / backlinks 共用)
type Anchor struct {
	Anchor string `json:"anchor"`
	URL    string `json:"url"`
	Rel    string `json:"rel"`
}

type KeywordPosition struct {
	Keyword  string `json:"kw"`
	Position int    `json:"pos"`
}

type HTMLMeta struct {
	Title       string `json:"title"`
	Description string `json:"desc"`
}

// Evidence 後端附帶的佐證資料
type Evidence struct {
	AnchorsOutgoing []Anchor          `json:"anchorsOutgoing"`
	AnchorsIncoming []Anchor          `json:"anchorsIncoming"`
	KeywordsTop50   []KeywordPosition `json:"keywordsTop50"`
	HTML            HTMLMeta          `json:"html"`
}
