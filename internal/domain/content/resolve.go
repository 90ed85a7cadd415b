package content

// ResolveStructure merges a lesson's ordered blocks with their candidate
// variants: for each block the tenant-scoped variant wins over the default,
// the default applies when no override exists, and a block without any
// variant keeps nil variant fields.
//
// Within one selection key (block + default, or block + tenant) a later row
// overwrites an earlier one. That is only deterministic because the store
// enforces at most one active row per key (partial unique indexes on
// block_variants); the merge cannot repair a store that violates it.
//
// The blocks slice is assumed ordered by position; the result preserves that
// order. Empty input yields an empty (non-nil) structure.
func ResolveStructure(blocks []OrderedBlock, variants []BlockVariant) Structure {
	structure := make(Structure, 0, len(blocks))
	if len(blocks) == 0 {
		return structure
	}

	winners := make(map[int64]BlockVariant, len(blocks))
	for _, v := range variants {
		if v.IsDefault() {
			// Default fills the slot only if no tenant override claimed it.
			if prev, ok := winners[v.BlockID]; !ok || prev.IsDefault() {
				winners[v.BlockID] = v
			}
			continue
		}
		winners[v.BlockID] = v
	}

	for _, b := range blocks {
		resolved := ResolvedBlock{
			BlockID:   b.BlockID,
			BlockType: b.BlockType,
			Position:  b.Position,
		}
		if v, ok := winners[b.BlockID]; ok {
			id := v.ID
			resolved.VariantID = &id
			resolved.VariantTenantID = v.TenantID
			resolved.VariantData = v.Data
		}
		structure = append(structure, resolved)
	}

	return structure
}
