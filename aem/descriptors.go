package aem

// FolderDescriptor is the JSON body of a folder create.
type FolderDescriptor struct {
	PrimaryType string `json:"jcr:primaryType"`
	Title       string `json:"jcr:title,omitempty"`
}

// PageDescriptor is the JSON body of a page create: the page node and its (empty) content node.
type PageDescriptor struct {
	PrimaryType string                `json:"jcr:primaryType"`
	Title       string                `json:"jcr:title"`
	Content     PageContentDescriptor `json:"jcr:content"`
}

// PageContentDescriptor carries a page's jcr:content properties.
type PageContentDescriptor struct {
	PrimaryType  string `json:"jcr:primaryType"`
	Title        string `json:"jcr:title,omitempty"`
	Description  string `json:"jcr:description,omitempty"`
	LastModified string `json:"cq:lastModified,omitempty"`
	Data         string `json:"jcr:data,omitempty"`
}
