package registry

import "strings"

// QualifyJobID and ParseQualifiedID are the sole rules
// for mapping between a bare id and its qualified "namespace/id" form.
// Namespace-less ids pass through unchanged.

// QualifyJobID returns "ns/id" when ns is non-empty, else the bare id.
func QualifyJobID(id, namespace string) string {
	if namespace == "" {
		return id
	}
	return namespace + "/" + id
}

// ParseQualifiedID splits a qualified id back into (namespace, id).
// Namespace is "" when the id carried no namespace. Job ids never
// contain "/", so the first separator is
// unambiguous.
func ParseQualifiedID(qid string) (namespace, id string) {
	if i := strings.IndexByte(qid, '/'); i >= 0 {
		return qid[:i], qid[i+1:]
	}
	return "", qid
}
