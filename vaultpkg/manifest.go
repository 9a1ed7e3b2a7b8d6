package vaultpkg

import (
	"encoding/xml"
	"fmt"
)

const (
	metaInfDir     = "META-INF"
	vaultDir       = "META-INF/vault"
	filterFile     = "META-INF/vault/filter.xml"
	propertiesFile = "META-INF/vault/properties.xml"
	contentRootDir = "jcr_root"

	propertiesDoctype = `<!DOCTYPE properties SYSTEM "http://java.sun.com/dtd/properties.dtd">` + "\n"
)

type workspaceFilter struct {
	XMLName xml.Name `xml:"workspaceFilter"`
	Version string   `xml:"version,attr"`
	Filters []filter `xml:"filter"`
}

type filter struct {
	Root string `xml:"root,attr"`
}

func marshalFilter(roots []string) ([]byte, error) {
	wf := workspaceFilter{Version: "1.0"}
	for _, r := range roots {
		wf.Filters = append(wf.Filters, filter{Root: r})
	}

	out, err := xml.MarshalIndent(wf, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("vaultpkg: couldn't serialise filter: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// packageProperties is the java.util.Properties XML form package managers read the package
// identity from.
type packageProperties struct {
	XMLName xml.Name        `xml:"properties"`
	Comment string          `xml:"comment,omitempty"`
	Entries []propertyEntry `xml:"entry"`
}

type propertyEntry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

func marshalProperties(name, group, version, description string) ([]byte, error) {
	props := packageProperties{
		Comment: "FileVault Package Properties",
		Entries: []propertyEntry{
			{Key: "name", Value: name},
			{Key: "group", Value: group},
			{Key: "version", Value: version},
			{Key: "description", Value: description},
			{Key: "createdBy", Value: "wp2aem"},
		},
	}

	out, err := xml.MarshalIndent(props, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("vaultpkg: couldn't serialise package properties: %w", err)
	}

	doc := []byte(xml.Header + propertiesDoctype)
	return append(doc, append(out, '\n')...), nil
}
