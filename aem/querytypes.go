package aem

// MkdirQuery is the query string the Sling folder endpoint understands: GET reports whether the
// folder is there, POST creates it.
type MkdirQuery struct {
	Cmd string `url:"cmd"`
}

var mkdir = MkdirQuery{Cmd: "mkdir"}
