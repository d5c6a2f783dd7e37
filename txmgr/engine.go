// Copyright (c) 2014-2025 The vault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmgr

import (
	"bytes"
	cryptorand "crypto/rand"
	"math/rand"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coindb/vault/account"
	"github.com/coindb/vault/cryptoprovider"
	"github.com/coindb/vault/keychain"
	"github.com/coindb/vault/script"
	"github.com/coindb/vault/store"
	"github.com/coindb/vault/unlock"
)

// BlockLinker lets the Blockchain Engine offer InsertTx a way to attach a
// freshly inserted tx to an already-known block, without txmgr importing
// chainmgr (which itself depends on txmgr for Tx/TxOut access). The vault
// façade wires this up once both engines exist.
type BlockLinker interface {
	LinkIfKnown(sess store.Session, tx *Tx) error
}

// Engine implements the Transaction Engine (spec §4.6). Like the other
// engines, it assumes the vault façade already holds the mutex and an
// open store.Session.
type Engine struct {
	accounts  *account.Engine
	keychains *keychain.Engine
	crypto    cryptoprovider.Provider
	cache     *unlock.Cache
	blocks    BlockLinker
	heights   HeightLookup
}

// New returns a Transaction Engine.
func New(accounts *account.Engine, keychains *keychain.Engine, crypto cryptoprovider.Provider, cache *unlock.Cache) *Engine {
	return &Engine{accounts: accounts, keychains: keychains, crypto: crypto, cache: cache}
}

// SetBlockLinker wires in the Blockchain Engine once it exists.
func (e *Engine) SetBlockLinker(b BlockLinker) { e.blocks = b }

// GetTx resolves a Tx by either its unsigned or final hash.
func (e *Engine) GetTx(sess store.Session, hash chainhash.Hash) (*Tx, error) {
	if t, err := e.byHash(sess, hash); err == nil {
		return t, nil
	}
	return e.byUnsignedHash(sess, hash)
}

func (e *Engine) byHash(sess store.Session, hash chainhash.Hash) (*Tx, error) {
	rows, err := sess.Query(store.Query{Kind: KindTx, Preds: []store.Pred{store.EQ("Hash", hash[:])}},
		func() store.Entity { return &Tx{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, hash.String(), nil)
	}
	return rows[0].(*Tx), nil
}

func (e *Engine) byUnsignedHash(sess store.Session, hash chainhash.Hash) (*Tx, error) {
	rows, err := sess.Query(store.Query{Kind: KindTx, Preds: []store.Pred{store.EQ("UnsignedHash", hash[:])}},
		func() store.Entity { return &Tx{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrNotFound, hash.String(), nil)
	}
	return rows[0].(*Tx), nil
}

func (e *Engine) insForTx(sess store.Session, txID store.ID) ([]*TxIn, error) {
	rows, err := sess.Query(store.Query{Kind: KindTxIn, Preds: []store.Pred{store.EQ("TxID", txID)}}.
		SortBy("Index", store.Asc),
		func() store.Entity { return &TxIn{} })
	if err != nil {
		return nil, err
	}
	out := make([]*TxIn, len(rows))
	for i, r := range rows {
		out[i] = r.(*TxIn)
	}
	return out, nil
}

// matchIncomingIn finds the element of incoming whose outpoint matches in,
// rather than assuming the two slices share index order: neither the store
// adapter's query result order nor a caller-supplied slice is guaranteed to
// agree on ordering, so positional pairing can fold one input's script into
// another's.
func matchIncomingIn(in *TxIn, incoming []*TxIn) *TxIn {
	for _, cand := range incoming {
		if cand.OutHash == in.OutHash && cand.OutIndex == in.OutIndex {
			return cand
		}
	}
	return nil
}

func (e *Engine) outsForTx(sess store.Session, txID store.ID) ([]*TxOut, error) {
	rows, err := sess.Query(store.Query{Kind: KindTxOut, Preds: []store.Pred{store.EQ("TxID", txID)}},
		func() store.Entity { return &TxOut{} })
	if err != nil {
		return nil, err
	}
	out := make([]*TxOut, len(rows))
	for i, r := range rows {
		out[i] = r.(*TxOut)
	}
	return out, nil
}

func (e *Engine) outAt(sess store.Session, txHash chainhash.Hash, index uint32) (*TxOut, *Tx, error) {
	owner, err := e.byHash(sess, txHash)
	if err != nil {
		owner, err = e.byUnsignedHash(sess, txHash)
	}
	if err != nil {
		return nil, nil, err
	}
	outs, err := e.outsForTx(sess, owner.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range outs {
		if o.Index == index {
			return o, owner, nil
		}
	}
	return nil, owner, store.ErrNotFound
}

// inputTemplate resolves the SigningScript an input spends and builds the
// InputScript template (redeem script, ordered pubkeys, threshold) needed to
// parse that input's scriptSig. Used wherever a scriptSig must be parsed
// against its real signature slots, rather than an empty guess.
func (e *Engine) inputTemplate(sess store.Session, in *TxIn) (*script.InputScript, error) {
	spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex)
	if err != nil {
		return nil, err
	}
	sc, err := e.scriptByOutputScript(sess, spentOut.Script)
	if err != nil {
		return nil, err
	}
	pubkeys := make([]*btcec.PublicKey, len(sc.Keys))
	for i, k := range sc.Keys {
		pk, perr := btcec.ParsePubKey(k.PubKey)
		if perr != nil {
			return nil, perr
		}
		pubkeys[i] = pk
	}
	return script.NewInputScript(sc.RedeemScript, pubkeys, sc.MinSigs), nil
}

func (e *Engine) scriptByOutputScript(sess store.Session, outScript []byte) (*account.SigningScript, error) {
	rows, err := sess.Query(store.Query{Kind: account.KindScript, Preds: []store.Pred{store.EQ("OutputScript", outScript)}},
		func() store.Entity { return &account.SigningScript{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].(*account.SigningScript), nil
}

// InsertTx runs the insertion algorithm (spec §4.6.1). The supplied tx,
// ins and outs are not yet persisted. Returns (stored, true, nil) on
// success, or (nil, false, nil) when the tx is irrelevant to the vault or
// a no-op duplicate — the ⊥ case.
func (e *Engine) InsertTx(sess store.Session, tx *Tx, ins []*TxIn, outs []*TxOut) (*Tx, bool, error) {
	if stored, err := e.byUnsignedHash(sess, tx.UnsignedHash); err == nil {
		return e.mergeIntoStored(sess, stored, tx, ins)
	}

	var (
		haveAllOutpoints = true
		sentFromVault    bool
		sentToVault      bool
		sendingAccount   string
		inputTotal       int64
		outputTotal      int64
		conflicts        = map[store.ID]*Tx{}
	)

	for _, in := range ins {
		spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex)
		if err != nil {
			haveAllOutpoints = false
			continue
		}
		inputTotal += spentOut.Value

		if spentOut.SpentByTxInID != 0 {
			owner, oerr := e.txOwning(sess, spentOut.SpentByTxInID)
			if oerr == nil && owner.ID != tx.ID {
				conflicts[owner.ID] = owner
			}
		}

		if sc, serr := e.scriptByOutputScript(sess, spentOut.Script); serr == nil {
			sentFromVault = true
			spentOut.SpentByTxInID = in.ID // filled in after ins get IDs, see below
			if spentOut.AccountHint != "" {
				sendingAccount = spentOut.AccountHint
			}
			_ = sc
		}
	}

	for _, out := range outs {
		outputTotal += out.Value
		sc, serr := e.scriptByOutputScript(sess, out.Script)
		if serr != nil {
			if sendingAccount != "" {
				out.AccountHint = sendingAccount
			}
			continue
		}
		sentToVault = true
		out.ScriptID = sc.ID

		bin := &account.Bin{}
		if err := sess.Load(account.KindBin, sc.BinID, bin); err != nil {
			return nil, false, err
		}
		acct := &account.Account{}
		if err := sess.Load(account.KindAccount, bin.AccountID, acct); err != nil {
			return nil, false, err
		}
		out.AccountHint = acct.Name

		switch sc.Status {
		case account.Unused:
			if sentFromVault && bin.IsChange {
				sc.Status = account.Change
			} else {
				sc.Status = account.Used
			}
			if err := sess.Update(sc); err != nil {
				return nil, false, err
			}
			if err := e.accounts.RefillBinPool(sess, acct, bin); err != nil {
				if _, ok := err.(*account.ChainCodeLockedError); !ok {
					return nil, false, err
				}
				log.Debugf("insert_tx: pool refill skipped for %s, chain codes locked", acct.Name)
			}
		case account.Issued:
			sc.Status = account.Used
			if err := sess.Update(sc); err != nil {
				return nil, false, err
			}
		}
	}

	if !sentFromVault && !sentToVault {
		return nil, false, nil
	}

	if len(conflicts) > 0 {
		tx.Status = Conflicting
		for _, c := range conflicts {
			if c.Status != Confirmed {
				c.Status = Conflicting
				if err := sess.Update(c); err != nil {
					return nil, false, err
				}
			}
		}
	}

	if haveAllOutpoints {
		tx.FeeKnown = true
		tx.Fee = inputTotal - outputTotal
	}

	if err := sess.Persist(tx); err != nil {
		return nil, false, err
	}
	for _, in := range ins {
		in.TxID = tx.ID
		if err := sess.Persist(in); err != nil {
			return nil, false, err
		}
	}
	for _, out := range outs {
		out.TxID = tx.ID
		if err := sess.Persist(out); err != nil {
			return nil, false, err
		}
	}
	// Now that TxIn IDs exist, write back spent back-references on the
	// outpoints they consume.
	for _, in := range ins {
		spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex)
		if err != nil {
			continue
		}
		if spentOut.SpentByTxInID == 0 || spentOut.SpentByTxInID == in.ID {
			spentOut.SpentByTxInID = in.ID
			spentOut.Status = Spent
			if err := sess.Update(spentOut); err != nil {
				return nil, false, err
			}
		}
	}
	// Out-of-order insertion: a pre-existing TxIn may already spend one of
	// this tx's own outputs.
	for _, out := range outs {
		if spender, err := e.findSpender(sess, tx.Hash, out.Index); err == nil && spender != nil {
			out.SpentByTxInID = spender.ID
			out.Status = Spent
			if err := sess.Update(out); err != nil {
				return nil, false, err
			}
		}
	}

	if tx.Status >= Sent && e.blocks != nil {
		if err := e.blocks.LinkIfKnown(sess, tx); err != nil {
			return nil, false, err
		}
	}

	return tx, true, nil
}

func (e *Engine) txOwning(sess store.Session, txInID store.ID) (*Tx, error) {
	in := &TxIn{}
	if err := sess.Load(KindTxIn, txInID, in); err != nil {
		return nil, err
	}
	out := &Tx{}
	if err := sess.Load(KindTx, in.TxID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) findSpender(sess store.Session, outHash chainhash.Hash, outIndex uint32) (*TxIn, error) {
	rows, err := sess.Query(store.Query{Kind: KindTxIn, Preds: []store.Pred{
		store.EQ("OutHash", outHash[:]),
		store.EQ("OutIndex", outIndex),
	}}, func() store.Entity { return &TxIn{} })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].(*TxIn), nil
}

// mergeIntoStored implements the duplicate-resolution branch of InsertTx
// when a Tx with the same unsigned hash already exists.
func (e *Engine) mergeIntoStored(sess store.Session, stored, incoming *Tx, incomingIns []*TxIn) (*Tx, bool, error) {
	if stored.Status == Unsigned && incoming.Status != Unsigned {
		storedIns, err := e.insForTx(sess, stored.ID)
		if err != nil {
			return nil, false, err
		}
		for _, in := range storedIns {
			incoming := matchIncomingIn(in, incomingIns)
			if incoming == nil {
				continue
			}
			in.ScriptSig = incoming.ScriptSig
			if err := sess.Update(in); err != nil {
				return nil, false, err
			}
		}
		stored.Status = incoming.Status
		stored.Hash = incoming.Hash
		if err := sess.Update(stored); err != nil {
			return nil, false, err
		}
		return stored, true, nil
	}

	if stored.Status == Unsigned && incoming.Status == Unsigned {
		storedIns, err := e.insForTx(sess, stored.ID)
		if err != nil {
			return nil, false, err
		}
		merged := false
		for _, in := range storedIns {
			incoming := matchIncomingIn(in, incomingIns)
			if incoming == nil {
				continue
			}
			tmpl, terr := e.inputTemplate(sess, in)
			if terr != nil {
				continue
			}
			storedScript, serr := script.Parse(in.ScriptSig, tmpl)
			incomingScript, ierr := script.Parse(incoming.ScriptSig, tmpl)
			if serr != nil || ierr != nil {
				continue
			}
			if n := storedScript.MergeSignatures(incomingScript); n > 0 {
				merged = true
				emitted, eerr := storedScript.Emit(script.EDIT)
				if eerr != nil {
					return nil, false, eerr
				}
				in.ScriptSig = emitted
				if err := sess.Update(in); err != nil {
					return nil, false, err
				}
			}
		}
		if !merged {
			return nil, false, nil
		}
		return stored, true, nil
	}

	if stored.Signed() && incoming.Status != Unsigned && incoming.Status > stored.Status {
		stored.Status = incoming.Status
		if err := sess.Update(stored); err != nil {
			return nil, false, err
		}
		return stored, true, nil
	}

	return nil, false, nil
}

// TxOutputSpec describes one desired output of a to-be-constructed Tx.
type TxOutputSpec struct {
	Value  int64
	Script []byte
}

// CreateTxRequest carries the parameters of CreateTx.
type CreateTxRequest struct {
	Account       *account.Account
	Version       int32
	LockTime      uint32
	Outputs       []TxOutputSpec
	Fee           int64
	MaxChangeOuts int
	Insert        bool
	Timestamp     uint32
	// Rand drives UTXO and output shuffling. Nil seeds a fresh generator
	// from crypto/rand once per call (spec §9 open question 1).
	Rand *rand.Rand
}

// CreateTx implements Construction (spec §4.6.2).
func (e *Engine) CreateTx(sess store.Session, req CreateTxRequest) (*Tx, error) {
	rng := req.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cryptoRandSeed()))
	}

	var desired int64 = req.Fee
	for _, o := range req.Outputs {
		desired += o.Value
	}

	utxos, err := e.utxosFor(sess, req.Account.Name)
	if err != nil {
		return nil, err
	}
	rng.Shuffle(len(utxos), func(i, j int) { utxos[i], utxos[j] = utxos[j], utxos[i] })

	var selected []*TxOut
	var total int64
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.Value
		if total >= desired {
			break
		}
	}
	if total < desired {
		return nil, newError(ErrInsufficientFunds, req.Account.Name, nil)
	}

	outputs := make([]TxOutputSpec, len(req.Outputs))
	copy(outputs, req.Outputs)

	if change := total - desired; change > 0 {
		bin, err := e.accounts.GetBin(sess, req.Account, account.ChangeBinName)
		if err != nil {
			return nil, err
		}
		sc, err := e.accounts.IssueChangeScript(sess, req.Account, bin)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, TxOutputSpec{Value: change, Script: sc.OutputScript})
	}
	rng.Shuffle(len(outputs), func(i, j int) { outputs[i], outputs[j] = outputs[j], outputs[i] })

	tx := &Tx{
		Version:   req.Version,
		LockTime:  req.LockTime,
		Timestamp: req.Timestamp,
		Status:    Unsigned,
	}
	ins := make([]*TxIn, len(selected))
	for i, u := range selected {
		owner := &Tx{}
		if err := sess.Load(KindTx, u.TxID, owner); err != nil {
			return nil, err
		}
		outHash := owner.Hash
		if outHash == (chainhash.Hash{}) {
			outHash = owner.UnsignedHash
		}
		ins[i] = &TxIn{OutHash: outHash, OutIndex: u.Index, Index: uint32(i), Sequence: 0xffffffff}
	}
	outs := make([]*TxOut, len(outputs))
	for i, o := range outputs {
		outs[i] = &TxOut{Index: uint32(i), Value: o.Value, Script: o.Script, Status: Unspent}
	}
	tx.UnsignedHash = hashTxTemplate(tx, ins, outs)

	if !req.Insert {
		return tx, nil
	}
	stored, ok, err := e.InsertTx(sess, tx, ins, outs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrInvariant, tx.UnsignedHash.String(), nil)
	}
	return stored, nil
}

// UTXOsForAccount returns every UNSPENT TxOut hinted to accountName, the
// UTXO view underlying both CreateTx's coin selection and the façade's
// Query/View Layer.
func (e *Engine) UTXOsForAccount(sess store.Session, accountName string) ([]*TxOut, error) {
	return e.utxosFor(sess, accountName)
}

func (e *Engine) utxosFor(sess store.Session, accountName string) ([]*TxOut, error) {
	rows, err := sess.Query(store.Query{Kind: KindTxOut, Preds: []store.Pred{
		store.EQ("AccountHint", accountName),
		store.EQ("Status", int(Unspent)),
	}}, func() store.Entity { return &TxOut{} })
	if err != nil {
		return nil, err
	}
	out := make([]*TxOut, len(rows))
	for i, r := range rows {
		out[i] = r.(*TxOut)
	}
	return out, nil
}

// SignTx implements Signing (spec §4.6.3). Returns true iff at least one
// signature was added.
func (e *Engine) SignTx(sess store.Session, unsignedHash chainhash.Hash, update bool) (bool, error) {
	tx, err := e.byUnsignedHash(sess, unsignedHash)
	if err != nil {
		return false, err
	}
	ins, err := e.insForTx(sess, tx.ID)
	if err != nil {
		return false, err
	}
	outs, err := e.outsForTx(sess, tx.ID)
	if err != nil {
		return false, err
	}

	added := false
	allSatisfied := true
	for _, in := range ins {
		spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex)
		if err != nil {
			allSatisfied = false
			continue
		}
		sc, err := e.scriptByOutputScript(sess, spentOut.Script)
		if err != nil {
			allSatisfied = false
			continue
		}
		tmpl, terr := e.inputTemplate(sess, in)
		if terr != nil {
			allSatisfied = false
			continue
		}
		cur, err := script.Parse(in.ScriptSig, tmpl)
		if err != nil {
			cur = tmpl
		}
		if cur.Satisfied() {
			continue
		}

		sigHash := sigHashForInput(tx, ins, outs, in, sc.RedeemScript)
		changed := false
		for _, missing := range cur.MissingPubkeys() {
			key, ok := keychainOwning(sc, missing)
			if !ok {
				continue
			}
			priv, perr := e.keychains.DeriveChildPrivkey(sess, key.KeychainName, key.ChildIndex)
			if perr != nil {
				continue
			}
			sig, serr := e.crypto.Sign(priv, sigHash)
			if serr != nil {
				continue
			}
			sigBytes := append(sig.Serialize(), byte(0x01)) // SIGHASH_ALL
			if cur.InsertSignature(missing, sigBytes) {
				added = true
				changed = true
			}
			if cur.Satisfied() {
				break
			}
		}
		if changed {
			emitted, eerr := cur.Emit(script.EDIT)
			if eerr != nil {
				return false, eerr
			}
			in.ScriptSig = emitted
		}
		if !cur.Satisfied() {
			allSatisfied = false
		}
	}

	if !added {
		return false, nil
	}

	if allSatisfied {
		tx.Status = Unsent
	}
	if update {
		if err := sess.Update(tx); err != nil {
			return false, err
		}
		for _, in := range ins {
			if err := sess.Update(in); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func keychainOwning(sc *account.SigningScript, pubkey *btcec.PublicKey) (account.SigningKey, bool) {
	ser := pubkey.SerializeCompressed()
	for _, k := range sc.Keys {
		if bytes.Equal(k.PubKey, ser) {
			return k, true
		}
	}
	return account.SigningKey{}, false
}

// DeleteTx implements Deletion (spec §4.6.4).
func (e *Engine) DeleteTx(sess store.Session, hash chainhash.Hash) error {
	tx, err := e.GetTx(sess, hash)
	if err != nil {
		return err
	}
	return e.deleteTx(sess, tx)
}

func (e *Engine) deleteTx(sess store.Session, tx *Tx) error {
	ins, err := e.insForTx(sess, tx.ID)
	if err != nil {
		return err
	}
	for _, in := range ins {
		if spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex); err == nil && spentOut.SpentByTxInID == in.ID {
			spentOut.SpentByTxInID = 0
			spentOut.Status = Unspent
			if err := sess.Update(spentOut); err != nil {
				return err
			}
		}
		if err := sess.Erase(in); err != nil {
			return err
		}
	}

	outs, err := e.outsForTx(sess, tx.ID)
	if err != nil {
		return err
	}
	for _, out := range outs {
		if out.SpentByTxInID != 0 {
			spender, serr := e.txOwning(sess, out.SpentByTxInID)
			if serr == nil {
				if err := e.deleteTx(sess, spender); err != nil {
					return err
				}
			}
		}
		if err := sess.Erase(out); err != nil {
			return err
		}
	}

	return sess.Erase(tx)
}

// SigningRequest is the read-only view returned for an unsigned Tx (spec
// §4.6.5).
type SigningRequest struct {
	SignaturesNeeded int
	NeededKeychains  []KeychainRef
}

// KeychainRef names a root keychain by identity, used in SigningRequest.
type KeychainRef struct {
	Name string
	Hash chainhash.Hash
}

// GetSigningRequest implements the Signing Request view.
func (e *Engine) GetSigningRequest(sess store.Session, unsignedHash chainhash.Hash) (*SigningRequest, error) {
	tx, err := e.byUnsignedHash(sess, unsignedHash)
	if err != nil {
		return nil, err
	}
	ins, err := e.insForTx(sess, tx.ID)
	if err != nil {
		return nil, err
	}

	req := &SigningRequest{}
	seen := map[string]bool{}
	for _, in := range ins {
		spentOut, _, err := e.outAt(sess, in.OutHash, in.OutIndex)
		if err != nil {
			continue
		}
		sc, err := e.scriptByOutputScript(sess, spentOut.Script)
		if err != nil {
			continue
		}
		tmpl, terr := e.inputTemplate(sess, in)
		if terr != nil {
			continue
		}
		cur, perr := script.Parse(in.ScriptSig, tmpl)
		if perr != nil {
			continue
		}
		for _, missing := range cur.MissingPubkeys() {
			key, ok := keychainOwning(sc, missing)
			if !ok || seen[key.KeychainName] {
				continue
			}
			seen[key.KeychainName] = true
			kc, gerr := e.keychains.GetKeychain(sess, key.KeychainName)
			if gerr != nil {
				continue
			}
			req.NeededKeychains = append(req.NeededKeychains, KeychainRef{Name: kc.Name, Hash: kc.Hash})
			req.SignaturesNeeded++
		}
	}
	return req, nil
}

// hashTxTemplate computes a deterministic identity hash for an
// as-yet-unsigned Tx from its logical fields, standing in for the
// Serialization contract's canonical raw-bytes encoding.
func hashTxTemplate(tx *Tx, ins []*TxIn, outs []*TxOut) chainhash.Hash {
	var buf []byte
	appendU32 := func(v uint32) { buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24)) }
	appendU32(uint32(tx.Version))
	appendU32(tx.LockTime)
	for _, in := range ins {
		buf = append(buf, in.OutHash[:]...)
		appendU32(in.OutIndex)
	}
	for _, out := range outs {
		appendU32(uint32(out.Value))
		appendU32(uint32(out.Value >> 32))
		buf = append(buf, out.Script...)
	}
	return chainhash.HashH(buf)
}

// sigHashForInput re-serializes tx the standard signature-hash way (spec
// §4.6.3): self's input script is set to redeemScript, every other input's
// script is blanked, then the whole tx is hashed with the SIGHASH_ALL byte
// appended. This is what ties a signature to this tx and this input rather
// than to the redeem script alone.
func sigHashForInput(tx *Tx, ins []*TxIn, outs []*TxOut, self *TxIn, redeemScript []byte) [32]byte {
	var buf []byte
	appendU32 := func(v uint32) { buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24)) }
	appendU32(uint32(tx.Version))
	for _, in := range ins {
		buf = append(buf, in.OutHash[:]...)
		appendU32(in.OutIndex)
		if in == self {
			buf = append(buf, redeemScript...)
		}
		appendU32(in.Sequence)
	}
	for _, out := range outs {
		appendU32(uint32(out.Value))
		appendU32(uint32(out.Value >> 32))
		buf = append(buf, out.Script...)
	}
	appendU32(tx.LockTime)
	buf = append(buf, 0x01) // SIGHASH_ALL
	return cryptoprovider.HashForSigning(buf)
}

func cryptoRandSeed() int64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return 1
	}
	var v int64
	for i, c := range b {
		v |= int64(c) << (8 * uint(i))
	}
	return v
}
