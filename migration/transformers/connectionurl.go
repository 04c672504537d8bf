// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

// ServerConnectionClass is the connection class attribute marking a
// connection to a published data source on a server. Connections of
// any other class are left untouched.
const ServerConnectionClass = "sqlproxy"

// SiteConnectionInfo describes how the destination site is reached by
// embedded server connections.
type SiteConnectionInfo struct {
	// SiteContentURL is the destination site's URL slug.
	SiteContentURL string

	// ServerAddress is the destination host.
	ServerAddress string

	// ServerPort is the destination port.
	ServerPort string

	// Channel is the connection scheme, typically https.
	Channel string
}

// Validate checks the destination info is complete.
func (i SiteConnectionInfo) Validate() error {
	if i.ServerAddress == "" {
		return errors.NotValidf("empty server address")
	}
	if i.SiteContentURL == "" {
		return errors.NotValidf("empty site content URL")
	}
	return nil
}

// XMLStore is the slice of the content file store the connection
// transformer needs: the workbook document stream, for reading and
// writing back.
type XMLStore interface {
	GetXMLStream(ctx context.Context, ref content.Reference) (io.ReadCloser, error)
	OpenWrite(ctx context.Context, ref content.Reference) (io.WriteCloser, error)
}

// ServerConnectionURL rewrites the embedded data source connections
// inside a workbook document so they point at the destination site:
// the connection's server, port and channel, and the nested
// repository location's id, path and site. Only connections whose
// class is ServerConnectionClass are touched.
//
// A connection whose data source has no destination match is left
// untouched, with a warning logged at most once per
// (workbook, content-url) pair across the whole run.
type ServerConnectionURL struct {
	store       XMLStore
	dataSources finder.Destination
	destination SiteConnectionInfo

	mu     sync.Mutex
	warned map[string]bool
}

// NewServerConnectionURL returns the connection rewrite transformer.
func NewServerConnectionURL(store XMLStore, dataSources finder.Destination, destination SiteConnectionInfo) (*ServerConnectionURL, error) {
	if err := destination.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &ServerConnectionURL{
		store:       store,
		dataSources: dataSources,
		destination: destination,
		warned:      make(map[string]bool),
	}, nil
}

// connectionRewrite is the resolved rewrite for one connection.
type connectionRewrite struct {
	dataSourceURL string
	site          SiteConnectionInfo
}

// Transform implements hooks.Transformer.
func (t *ServerConnectionURL) Transform(ctx context.Context, workbook *content.Workbook) (*content.Workbook, error) {
	rewrites := make(map[string]connectionRewrite)
	for i, conn := range workbook.Connections {
		if conn.Type != ServerConnectionClass {
			continue
		}
		result, err := t.dataSources.FindBySourceContentURL(ctx, conn.ContentURL)
		if err != nil {
			return workbook, errors.Trace(err)
		}
		if !result.Found {
			t.warnOnce(workbook.ID, conn.ContentURL)
			continue
		}
		rewrites[conn.ContentURL] = connectionRewrite{
			dataSourceURL: result.Reference.ContentURL,
			site:          t.destination,
		}
		workbook.Connections[i].ServerAddress = t.destination.ServerAddress
		workbook.Connections[i].ServerPort = t.destination.ServerPort
	}
	if len(rewrites) == 0 {
		return workbook, nil
	}

	reader, err := t.store.GetXMLStream(ctx, workbook.Reference)
	if err != nil {
		return workbook, errors.Annotate(err, "opening workbook document")
	}
	doc, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return workbook, errors.Annotate(err, "reading workbook document")
	}
	if closeErr != nil {
		return workbook, errors.Trace(closeErr)
	}

	rewritten, err := rewriteConnectionXML(doc, rewrites)
	if err != nil {
		return workbook, errors.Annotate(err, "rewriting workbook connections")
	}

	writer, err := t.store.OpenWrite(ctx, workbook.Reference)
	if err != nil {
		return workbook, errors.Annotate(err, "opening workbook document for write")
	}
	if _, err := writer.Write(rewritten); err != nil {
		writer.Close()
		return workbook, errors.Annotate(err, "writing workbook document")
	}
	if err := writer.Close(); err != nil {
		return workbook, errors.Trace(err)
	}
	return workbook, nil
}

func (t *ServerConnectionURL) warnOnce(workbookID, contentURL string) {
	key := workbookID + "/" + contentURL
	t.mu.Lock()
	seen := t.warned[key]
	t.warned[key] = true
	t.mu.Unlock()
	if seen {
		return
	}
	logger.Warningf("no destination data source for connection %q in workbook %s; connection left untouched",
		contentURL, workbookID)
}

// rewriteConnectionXML streams the workbook document token by token,
// updating the attributes of matched server connections and their
// nested repository locations. The dbname attribute carries the
// connection's data source content URL.
func rewriteConnectionXML(doc []byte, rewrites map[string]connectionRewrite) ([]byte, error) {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	var buf bytes.Buffer
	encoder := xml.NewEncoder(&buf)

	var active *connectionRewrite
	depth := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "parsing workbook document")
		}
		switch element := token.(type) {
		case xml.StartElement:
			if active != nil {
				depth++
			}
			switch element.Name.Local {
			case "connection":
				if attrValue(element, "class") == ServerConnectionClass {
					url := attrValue(element, "dbname")
					if rewrite, ok := rewrites[url]; ok {
						element = setAttrs(element, map[string]string{
							"dbname":  rewrite.dataSourceURL,
							"server":  rewrite.site.ServerAddress,
							"port":    rewrite.site.ServerPort,
							"channel": rewrite.site.Channel,
						})
						active = &rewrite
						depth = 0
					}
				}
			case "repository-location":
				if active != nil {
					element = setAttrs(element, map[string]string{
						"id":   active.dataSourceURL,
						"site": active.site.SiteContentURL,
						"path": fmt.Sprintf("/t/%s/datasources", active.site.SiteContentURL),
					})
				}
			}
			if err := encoder.EncodeToken(element); err != nil {
				return nil, errors.Trace(err)
			}
			continue
		case xml.EndElement:
			if active != nil {
				if depth == 0 && element.Name.Local == "connection" {
					active = nil
				} else {
					depth--
				}
			}
		}
		if err := encoder.EncodeToken(xml.CopyToken(token)); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := encoder.Flush(); err != nil {
		return nil, errors.Trace(err)
	}
	return buf.Bytes(), nil
}

func attrValue(element xml.StartElement, name string) string {
	for _, attr := range element.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

// setAttrs returns the element with the given attributes replaced,
// or appended when absent. Attribute order is preserved for existing
// attributes.
func setAttrs(element xml.StartElement, values map[string]string) xml.StartElement {
	attrs := make([]xml.Attr, len(element.Attr))
	copy(attrs, element.Attr)
	seen := make(map[string]bool)
	for i, attr := range attrs {
		if value, ok := values[attr.Name.Local]; ok {
			attrs[i].Value = value
			seen[attr.Name.Local] = true
		}
	}
	for name, value := range values {
		if !seen[name] {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
		}
	}
	element.Attr = attrs
	return element
}
