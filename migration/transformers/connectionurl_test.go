// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/transformers"
)

type ConnectionURLSuite struct {
	baseSuite
	store *fakeXMLStore
}

var _ = gc.Suite(&ConnectionURLSuite{})

func (s *ConnectionURLSuite) SetUpTest(c *gc.C) {
	s.baseSuite.SetUpTest(c)
	s.store = &fakeXMLStore{docs: make(map[string][]byte)}
}

// fakeXMLStore keeps workbook documents in memory.
type fakeXMLStore struct {
	docs map[string][]byte
}

func (f *fakeXMLStore) GetXMLStream(_ context.Context, ref content.Reference) (io.ReadCloser, error) {
	doc, ok := f.docs[ref.ID]
	if !ok {
		return nil, errors.NotFoundf("document for %q", ref.ID)
	}
	return io.NopCloser(bytes.NewReader(doc)), nil
}

func (f *fakeXMLStore) OpenWrite(_ context.Context, ref content.Reference) (io.WriteCloser, error) {
	return &storeWriter{store: f, id: ref.ID}, nil
}

type storeWriter struct {
	store *fakeXMLStore
	id    string
	buf   bytes.Buffer
}

func (w *storeWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *storeWriter) Close() error {
	w.store.docs[w.id] = w.buf.Bytes()
	return nil
}

const workbookDoc = `<workbook>
  <connection class="sqlproxy" dbname="sales" server="old-server" port="80" channel="http">
    <repository-location id="sales" site="old-site" path="/t/old-site/datasources"/>
  </connection>
  <connection class="postgres" dbname="warehouse" server="db.internal" port="5432" channel=""/>
</workbook>`

func (s *ConnectionURLSuite) siteInfo() transformers.SiteConnectionInfo {
	return transformers.SiteConnectionInfo{
		SiteContentURL: "newsite",
		ServerAddress:  "cloud.example.com",
		ServerPort:     "443",
		Channel:        "https",
	}
}

func (s *ConnectionURLSuite) workbook(c *gc.C) *content.Workbook {
	return &content.Workbook{
		Reference: ref(c, "w-1", "overview", "Default", "Overview"),
		Connections: []content.Connection{{
			ID:            "c-1",
			Type:          transformers.ServerConnectionClass,
			ServerAddress: "old-server",
			ServerPort:    "80",
			ContentURL:    "sales",
		}, {
			ID:         "c-2",
			Type:       "postgres",
			ContentURL: "warehouse",
		}},
	}
}

// connectionAttrs extracts the attributes of every element with the
// given name from a document.
func connectionAttrs(c *gc.C, doc []byte, name string) []map[string]string {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	var found []map[string]string
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		c.Assert(err, jc.ErrorIsNil)
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != name {
			continue
		}
		attrs := make(map[string]string)
		for _, attr := range start.Attr {
			attrs[attr.Name.Local] = attr.Value
		}
		found = append(found, attrs)
	}
	return found
}

func (s *ConnectionURLSuite) TestRewritesServerConnections(c *gc.C) {
	s.store.docs["w-1"] = []byte(workbookDoc)
	dataSources := newFakeFinder()
	dataSources.addByURL("sales", ref(c, "dest-d-1", "sales-cloud", "Default", "Sales"))

	t, err := transformers.NewServerConnectionURL(s.store, dataSources, s.siteInfo())
	c.Assert(err, jc.ErrorIsNil)
	transformed, err := t.Transform(context.Background(), s.workbook(c))
	c.Assert(err, jc.ErrorIsNil)

	// The in-memory connection records follow the destination.
	c.Check(transformed.Connections[0].ServerAddress, gc.Equals, "cloud.example.com")
	c.Check(transformed.Connections[0].ServerPort, gc.Equals, "443")
	c.Check(transformed.Connections[1].ServerAddress, gc.Equals, "")

	// The document was rewritten in place.
	connections := connectionAttrs(c, s.store.docs["w-1"], "connection")
	c.Assert(connections, gc.HasLen, 2)
	c.Check(connections[0]["dbname"], gc.Equals, "sales-cloud")
	c.Check(connections[0]["server"], gc.Equals, "cloud.example.com")
	c.Check(connections[0]["port"], gc.Equals, "443")
	c.Check(connections[0]["channel"], gc.Equals, "https")

	// The non-proxy connection is untouched.
	c.Check(connections[1]["server"], gc.Equals, "db.internal")
	c.Check(connections[1]["dbname"], gc.Equals, "warehouse")

	locations := connectionAttrs(c, s.store.docs["w-1"], "repository-location")
	c.Assert(locations, gc.HasLen, 1)
	c.Check(locations[0]["id"], gc.Equals, "sales-cloud")
	c.Check(locations[0]["site"], gc.Equals, "newsite")
	c.Check(locations[0]["path"], gc.Equals, "/t/newsite/datasources")
}

func (s *ConnectionURLSuite) TestUnresolvedConnectionWarnsOnceAndLeavesDocument(c *gc.C) {
	s.store.docs["w-1"] = []byte(workbookDoc)
	t, err := transformers.NewServerConnectionURL(s.store, newFakeFinder(), s.siteInfo())
	c.Assert(err, jc.ErrorIsNil)

	transformed, err := t.Transform(context.Background(), s.workbook(c))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(transformed.Connections[0].ServerAddress, gc.Equals, "old-server")
	c.Check(string(s.store.docs["w-1"]), gc.Equals, workbookDoc)
	c.Check(s.warnings(), gc.HasLen, 1)

	// A repeat run over the same connection stays quiet.
	_, err = t.Transform(context.Background(), s.workbook(c))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.warnings(), gc.HasLen, 1)
}

func (s *ConnectionURLSuite) TestNoServerConnectionsSkipsDocument(c *gc.C) {
	workbook := &content.Workbook{
		Reference: ref(c, "w-2", "", "Default", "Plain"),
		Connections: []content.Connection{{
			ID:   "c-1",
			Type: "postgres",
		}},
	}
	t, err := transformers.NewServerConnectionURL(s.store, newFakeFinder(), s.siteInfo())
	c.Assert(err, jc.ErrorIsNil)
	_, err = t.Transform(context.Background(), workbook)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *ConnectionURLSuite) TestValidatesSiteInfo(c *gc.C) {
	_, err := transformers.NewServerConnectionURL(s.store, newFakeFinder(),
		transformers.SiteConnectionInfo{ServerAddress: "host"})
	c.Check(err, jc.Satisfies, errors.IsNotValid)
	_, err = transformers.NewServerConnectionURL(s.store, newFakeFinder(),
		transformers.SiteConnectionInfo{SiteContentURL: "site"})
	c.Check(err, jc.Satisfies, errors.IsNotValid)
}
