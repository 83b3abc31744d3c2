package lineage

import (
	"fmt"
	"sort"
	"strconv"
)

type eventKind int

const (
	eventNone eventKind = iota
	eventTrade
	eventRelease
	eventDraft
)

type event struct {
	kind eventKind
	pos  int
	sel  *Selection
}

type tradeSide struct {
	pos    int
	roster int
}

// resolver holds the state of one Resolve call
type resolver struct {
	idx *Index
	// expanded maps a trade and its giving roster to the branch that already covers it
	expanded map[tradeSide]string
}

// Resolve builds the provenance tree of asset for rosterID from a frozen index.
// It does no I/O and returns the same tree for the same inputs.
func Resolve(idx *Index, rosterID int, asset Asset) (*ComprehensiveAssetChain, error) {
	r := &resolver{idx: idx, expanded: make(map[tradeSide]string)}
	asset = r.describe(asset)

	acq, cursor := r.rootAcquisition(rosterID, asset)

	chain := &ComprehensiveAssetChain{
		RosterID:    rosterID,
		ManagerName: idx.ManagerName(rosterID),
		Asset:       asset,
		Acquisition: acq,
		Branches:    []*Branch{},
	}
	if tl := idx.Timeline(); len(tl) > 0 {
		chain.LeagueID = tl[len(tl)-1].SeasonID
		for _, s := range tl {
			chain.Seasons = append(chain.Seasons, s.Season)
		}
	}

	current, holder := asset, rosterID
	for {
		ev := r.nextEvent(current, holder, cursor)
		switch ev.kind {
		case eventTrade:
			if err := r.assertForward(cursor, ev.pos, current); err != nil {
				return nil, err
			}
			branch, err := r.buildBranch(current, holder, ev.pos)
			if err != nil {
				return nil, err
			}
			chain.Branches = append(chain.Branches, branch)

			next, ok := r.idx.nextAddition(rosterID, current.ID, ev.pos)
			if !ok {
				return chain, nil
			}
			cursor = next
			acq = r.acquisitionAt(rosterID, next)

		case eventRelease:
			next, ok := r.idx.nextAddition(rosterID, current.ID, ev.pos)
			if !ok {
				out := r.outcome(current, holder, acq, OutcomeReleased)
				out.TransactionID = r.idx.txs[ev.pos].ID
				chain.Outcome = &out
				return chain, nil
			}
			cursor = next
			acq = r.acquisitionAt(rosterID, next)

		case eventDraft:
			current, holder, acq, cursor = r.substitute(current, ev, cursor)
			if holder != rosterID {
				out := r.outcome(current, holder, acq, OutcomeHeld)
				chain.Outcome = &out
				return chain, nil
			}

		default:
			status := OutcomeHeld
			if current.IsPick() {
				status = OutcomePendingDraft
			}
			out := r.outcome(current, holder, acq, status)
			chain.Outcome = &out
			return chain, nil
		}
	}
}

// rootAcquisition finds how rosterID first obtained asset: the earlier of its
// first recorded addition and a draft selection by the roster.
func (r *resolver) rootAcquisition(rosterID int, asset Asset) (Acquisition, int) {
	addPos, hasAdd := r.idx.nextAddition(rosterID, asset.ID, -1)

	if !asset.IsPick() {
		if entry, ok := r.idx.byPicker[rosterAsset{rosterID, asset.ID}]; ok && (!hasAdd || entry.pos < addPos) {
			return draftedBy(entry.sel), entry.pos
		}
	}
	if hasAdd {
		return r.acquisitionAt(rosterID, addPos), addPos
	}
	if asset.IsPick() && asset.OriginalRosterID == rosterID {
		return Acquisition{Kind: AcquiredOriginal, RosterID: rosterID, Season: asset.Season, Round: asset.Round}, -1
	}
	// nothing recorded: the roster is presumed to have drafted it
	return Acquisition{Kind: AcquiredDrafted, RosterID: rosterID, Season: asset.Season, Round: asset.Round}, -1
}

func (r *resolver) acquisitionAt(rosterID, pos int) Acquisition {
	tx := r.idx.txs[pos]
	acq := Acquisition{
		RosterID:      rosterID,
		TransactionID: tx.ID,
		Season:        tx.Season,
		Timestamp:     tx.Timestamp,
	}
	switch tx.Type {
	case TxTrade:
		acq.Kind = AcquiredTrade
	case TxWaiver:
		acq.Kind = AcquiredWaiver
	case TxCommissioner:
		acq.Kind = AcquiredCommissioner
	default:
		acq.Kind = AcquiredFreeAgent
	}
	return acq
}

func draftedBy(sel *Selection) Acquisition {
	return Acquisition{
		Kind:      AcquiredDrafted,
		RosterID:  sel.RosterID,
		Season:    sel.Season,
		Round:     sel.Round,
		PickNo:    sel.PickNo,
		Timestamp: sel.Time,
	}
}

// nextEvent finds what happens next to asset while holder has it after cursor.
// A pick that reaches its draft still held is converted before any later removal counts.
func (r *resolver) nextEvent(asset Asset, holder, cursor int) event {
	pos, removed := r.idx.nextRemoval(holder, asset.ID, cursor)

	if asset.IsPick() {
		if entry, ok := r.idx.byPick[asset.ID]; ok && (!removed || pos > entry.pos) {
			return event{kind: eventDraft, pos: entry.pos, sel: entry.sel}
		}
	}
	if !removed {
		return event{kind: eventNone}
	}
	if r.idx.txs[pos].Type == TxTrade {
		return event{kind: eventTrade, pos: pos}
	}
	return event{kind: eventRelease, pos: pos}
}

// substitute replaces a used pick by the player selected with it.
// The player is held by whichever roster made the selection.
func (r *resolver) substitute(pick Asset, ev event, cursor int) (Asset, int, Acquisition, int) {
	player := r.describe(PlayerAsset(ev.sel.PlayerID))
	player.DraftedWith = pick.ID
	if ev.pos > cursor {
		cursor = ev.pos
	}
	return player, ev.sel.RosterID, draftedBy(ev.sel), cursor
}

func (r *resolver) assertForward(cursor, pos int, asset Asset) error {
	if pos > cursor {
		return nil
	}
	txID := ""
	if pos >= 0 && pos < len(r.idx.txs) {
		txID = r.idx.txs[pos].ID
	}
	return &InconsistentDataError{
		TransactionID: txID,
		AssetID:       asset.ID,
		Reason:        fmt.Sprintf("lineage moved backwards from position %d to %d", cursor, pos),
	}
}

// buildBranch expands the trade at pos in which holder gave asset away
func (r *resolver) buildBranch(asset Asset, holder, pos int) (*Branch, error) {
	tx := r.idx.txs[pos]
	id := tx.ID + ":" + strconv.Itoa(holder) + ":" + asset.ID

	branch := &Branch{
		ID:         id,
		Asset:      asset,
		HolderID:   holder,
		HolderName: r.idx.ManagerName(holder),
		Transaction: TradeSummary{
			ID:        tx.ID,
			Season:    tx.Season,
			Week:      tx.Week,
			Timestamp: tx.Timestamp,
			RosterIDs: tx.RosterIDs,
		},
	}

	dest, ok := tx.Adds[asset.ID]
	if !ok {
		return nil, &InconsistentDataError{TransactionID: tx.ID, AssetID: asset.ID, Reason: "traded away but received by no roster"}
	}
	destAcq := r.acquisitionAt(dest, pos)
	branch.Destination = r.outcome(asset, dest, destAcq, OutcomeTraded)
	branch.Destination.TransactionID = tx.ID

	key := tradeSide{pos: pos, roster: holder}
	if first, seen := r.expanded[key]; seen {
		branch.MergedInto = first
		return branch, nil
	}
	r.expanded[key] = id

	branch.Given = r.describeAll(removals(tx, holder))
	received := additions(tx, holder)
	for _, assetID := range received {
		if isPickID(assetID) {
			continue
		}
		if _, dropped := tx.Drops[assetID]; !dropped {
			return nil, &InconsistentDataError{TransactionID: tx.ID, AssetID: assetID, Reason: "trade adds a player no roster gave up"}
		}
	}
	branch.Received = r.describeAll(received)

	acq := r.acquisitionAt(holder, pos)
	for _, rec := range branch.Received {
		if err := r.follow(branch, rec, holder, pos, acq); err != nil {
			return nil, err
		}
	}
	return branch, nil
}

// follow tracks a received asset until it is traded again (child branch)
// or comes to rest (final outcome). A drop followed by a re-add by the same
// holder is not a resting point.
func (r *resolver) follow(parent *Branch, asset Asset, holder, cursor int, acq Acquisition) error {
	for {
		ev := r.nextEvent(asset, holder, cursor)
		switch ev.kind {
		case eventTrade:
			if err := r.assertForward(cursor, ev.pos, asset); err != nil {
				return err
			}
			child, err := r.buildBranch(asset, holder, ev.pos)
			if err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)
			return nil

		case eventRelease:
			// a holder that picks the asset back up keeps the lineage going
			if next, ok := r.idx.nextAddition(holder, asset.ID, ev.pos); ok {
				cursor = next
				acq = r.acquisitionAt(holder, next)
				continue
			}
			out := r.outcome(asset, holder, acq, OutcomeReleased)
			out.TransactionID = r.idx.txs[ev.pos].ID
			parent.Outcomes = append(parent.Outcomes, out)
			return nil

		case eventDraft:
			asset, holder, acq, cursor = r.substitute(asset, ev, cursor)

		default:
			status := OutcomeHeld
			if asset.IsPick() {
				status = OutcomePendingDraft
			}
			parent.Outcomes = append(parent.Outcomes, r.outcome(asset, holder, acq, status))
			return nil
		}
	}
}

func (r *resolver) outcome(asset Asset, holder int, acq Acquisition, status OutcomeStatus) FinalOutcome {
	return FinalOutcome{
		Asset:       asset,
		HolderID:    holder,
		HolderName:  r.idx.ManagerName(holder),
		Acquisition: acq,
		Status:      status,
	}
}

// describe fills display fields from the index
func (r *resolver) describe(a Asset) Asset {
	if a.IsPick() {
		if a.Season == "" {
			if parsed, err := ParseAsset(a.ID); err == nil {
				a = parsed
			}
		}
		a.Name = fmt.Sprintf("%s Round %d", a.Season, a.Round)
		if owner := r.idx.ManagerName(a.OriginalRosterID); owner != "" {
			a.Name += " (" + owner + ")"
		}
		if sel, ok := r.idx.Selection(a.ID); ok {
			a.PlayerID = sel.PlayerID
		}
		return a
	}
	if info, ok := r.idx.players[a.ID]; ok {
		a.Name = info.Name
		a.Position = info.Position
		a.Team = info.Team
	}
	return a
}

func (r *resolver) describeAll(ids []string) []Asset {
	out := make([]Asset, 0, len(ids))
	for _, id := range ids {
		var a Asset
		if isPickID(id) {
			parsed, err := ParseAsset(id)
			if err != nil {
				parsed = Asset{Kind: AssetDraftPick, ID: id}
			}
			a = parsed
		} else {
			a = PlayerAsset(id)
		}
		out = append(out, r.describe(a))
	}
	sort.Slice(out, func(i, j int) bool { return lessAsset(out[i], out[j]) })
	return out
}
