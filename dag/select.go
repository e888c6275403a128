package dag

import (
	"strings"

	"github.com/kbukum/dagflow/errors"
)

// Select returns the node addressed by a dot-separated path of node names
// below root, e.g. "outer.inner.task". An empty path selects root.
func Select(root Node, path string) (Node, error) {
	if path == "" {
		return root, nil
	}
	current := root
	walked := make([]string, 0, strings.Count(path, ".")+1)
	for _, segment := range strings.Split(path, ".") {
		d, ok := current.(*DAG)
		if !ok {
			at := strings.Join(walked, ".")
			if at == "" {
				at = "root"
			}
			return nil, errors.Newf(errors.ErrCodeInvalidReference,
				"cannot select %q: %s is a task and has no nodes", path, at).
				WithDetail("reference", path)
		}
		child, ok := d.Node(segment)
		if !ok {
			return nil, errors.InvalidReference("node", segment, d.NodeNames()).
				WithDetail("path", path)
		}
		walked = append(walked, segment)
		current = child
	}
	return current, nil
}
