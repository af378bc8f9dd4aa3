package sxm

// NewTestWiring builds a Client/SessionManager/Catalog triple pointed at a
// single fake origin serving both the REST module API and the CDN, for use
// by other packages' httptest-based tests (notably internal/handlers). Not
// used by the production wiring in cmd/sxmproxy, which talks to the real,
// separate SiriusXM REST and CDN hosts via NewClient.
func NewTestWiring(origin string) (*Client, *SessionManager, *Catalog) {
	client, err := newTestClient(origin+"/rest/v2/experience/modules/%s", origin)
	if err != nil {
		panic(err)
	}
	session := NewSessionManager(client, "test-user", "test-pass", nil)
	catalog := NewCatalog(client, session)
	return client, session, catalog
}
