package appcore

import "bifa-core/model"

// archiveNames merges the name tables of several archive entries.
type archiveNames map[model.BinderID]string

func (n archiveNames) Name(id model.BinderID) string {
	if s, ok := n[id]; ok {
		return s
	}
	return id.String()
}
