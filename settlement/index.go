package settlement

// Index is the lookup universe of one run, built once from the directory
// snapshots. It is read-only after construction.
type Index struct {
	workers       map[string]WorkerRecord
	workersByName map[string][]WorkerRecord
	teams         map[string]TeamRecord

	companies       map[string]CompanyRecord
	companiesByName map[string]CompanyRecord

	// first support team per company, in directory order
	supportByCompanyID   map[string]TeamRecord
	supportByCompanyName map[string]TeamRecord
}

// NewIndex builds the lookup tables. When two records share a key the
// first one in directory order wins.
func NewIndex(workers []WorkerRecord, teams []TeamRecord, companies []CompanyRecord) *Index {
	idx := &Index{
		workers:              make(map[string]WorkerRecord, len(workers)),
		workersByName:        make(map[string][]WorkerRecord),
		teams:                make(map[string]TeamRecord, len(teams)),
		companies:            make(map[string]CompanyRecord, len(companies)),
		companiesByName:      make(map[string]CompanyRecord),
		supportByCompanyID:   make(map[string]TeamRecord),
		supportByCompanyName: make(map[string]TeamRecord),
	}

	for _, w := range workers {
		if _, dup := idx.workers[w.ID]; dup || w.ID == "" {
			continue
		}
		idx.workers[w.ID] = w
		if key := NormalizeName(w.Name); key != "" {
			idx.workersByName[key] = append(idx.workersByName[key], w)
		}
	}

	for _, c := range companies {
		if _, dup := idx.companies[c.ID]; !dup && c.ID != "" {
			idx.companies[c.ID] = c
		}
		if key := NormalizeName(c.Name); key != "" {
			if _, dup := idx.companiesByName[key]; !dup {
				idx.companiesByName[key] = c
			}
		}
	}

	for _, t := range teams {
		if _, dup := idx.teams[t.ID]; dup || t.ID == "" {
			continue
		}
		idx.teams[t.ID] = t
		if t.Type != TeamSupport {
			continue
		}
		if !isSentinelID(t.CompanyID) {
			if _, dup := idx.supportByCompanyID[t.CompanyID]; !dup {
				idx.supportByCompanyID[t.CompanyID] = t
			}
		}
		if key := NormalizeName(t.CompanyName); key != "" {
			if _, dup := idx.supportByCompanyName[key]; !dup {
				idx.supportByCompanyName[key] = t
			}
		}
	}

	return idx
}

// Worker looks up a worker by id.
func (idx *Index) Worker(id string) (WorkerRecord, bool) {
	w, ok := idx.workers[id]
	return w, ok
}

// Team looks up a team by id.
func (idx *Index) Team(id string) (TeamRecord, bool) {
	if isSentinelID(id) {
		return TeamRecord{}, false
	}
	t, ok := idx.teams[id]
	return t, ok
}

// Company looks up a company by id.
func (idx *Index) Company(id string) (CompanyRecord, bool) {
	if isSentinelID(id) {
		return CompanyRecord{}, false
	}
	c, ok := idx.companies[id]
	return c, ok
}

// CompanyByName looks up a company by normalized name.
func (idx *Index) CompanyByName(name string) (CompanyRecord, bool) {
	key := NormalizeName(name)
	if key == "" {
		return CompanyRecord{}, false
	}
	c, ok := idx.companiesByName[key]
	return c, ok
}

// WorkerByName looks up a worker by normalized name. When several workers
// share the name, one belonging to preferTeamID wins, else the first.
func (idx *Index) WorkerByName(name, preferTeamID string) (WorkerRecord, bool) {
	matches := idx.workersByName[NormalizeName(name)]
	if len(matches) == 0 {
		return WorkerRecord{}, false
	}
	for _, w := range matches {
		if preferTeamID != "" && w.TeamID == preferTeamID {
			return w, true
		}
	}
	return matches[0], true
}

// SupportTeamFor finds the support team of a company, by id first and by
// normalized company name second.
func (idx *Index) SupportTeamFor(companyID, companyName string) (TeamRecord, bool) {
	if !isSentinelID(companyID) {
		if t, ok := idx.supportByCompanyID[companyID]; ok {
			return t, true
		}
	}
	if key := NormalizeName(companyName); key != "" {
		if t, ok := idx.supportByCompanyName[key]; ok {
			return t, true
		}
	}
	return TeamRecord{}, false
}
