package wbxml

import "strings"

// CodePage maps element names to single-byte tag tokens.
type CodePage struct {
	Index     byte
	Namespace string
	names     map[byte]string
	tags      map[string]byte
}

func newCodePage(index byte, namespace string, names map[byte]string) *CodePage {
	cp := &CodePage{
		Index:     index,
		Namespace: namespace,
		names:     names,
		tags:      make(map[string]byte, len(names)),
	}
	for tag, name := range names {
		cp.tags[name] = tag
	}
	return cp
}

// Tag returns the token of an element name.
func (cp *CodePage) Tag(name string) (byte, bool) {
	t, ok := cp.tags[name]
	return t, ok
}

// Name returns the element name of a token.
func (cp *CodePage) Name(tag byte) (string, bool) {
	n, ok := cp.names[tag]
	return n, ok
}

// CodePages is an ordered set of code pages for one document type.
type CodePages []*CodePage

// Page returns the code page with the given index.
func (p CodePages) Page(index byte) (*CodePage, bool) {
	for _, cp := range p {
		if cp.Index == index {
			return cp, true
		}
	}
	return nil, false
}

// Lookup finds the page and token for an element name, preferring the page
// whose namespace matches.
func (p CodePages) Lookup(namespace, name string) (page, tag byte, ok bool) {
	for _, cp := range p {
		if namespace != "" && !strings.EqualFold(cp.Namespace, namespace) {
			continue
		}
		if t, found := cp.Tag(name); found {
			return cp.Index, t, true
		}
	}
	if namespace == "" {
		return 0, 0, false
	}
	return p.Lookup("", name)
}

// PageSyncML is code page 0 of the SyncML 1.2 DTD.
var PageSyncML = newCodePage(0x00, "SYNCML:SYNCML1.2", map[byte]string{
	0x05: "Add",
	0x06: "Alert",
	0x07: "Archive",
	0x08: "Atomic",
	0x09: "Chal",
	0x0A: "Cmd",
	0x0B: "CmdID",
	0x0C: "CmdRef",
	0x0D: "Copy",
	0x0E: "Cred",
	0x0F: "Data",
	0x10: "Delete",
	0x11: "Exec",
	0x12: "Final",
	0x13: "Get",
	0x14: "Item",
	0x15: "Lang",
	0x16: "LocName",
	0x17: "LocURI",
	0x18: "Map",
	0x19: "MapItem",
	0x1A: "Meta",
	0x1B: "MsgID",
	0x1C: "MsgRef",
	0x1D: "NoResp",
	0x1E: "NoResults",
	0x1F: "Put",
	0x20: "Replace",
	0x21: "RespURI",
	0x22: "Results",
	0x23: "Search",
	0x24: "Sequence",
	0x25: "SessionID",
	0x26: "SftDel",
	0x27: "Source",
	0x28: "SourceRef",
	0x29: "Status",
	0x2A: "Sync",
	0x2B: "SyncBody",
	0x2C: "SyncHdr",
	0x2D: "SyncML",
	0x2E: "Target",
	0x2F: "TargetRef",
	0x31: "VerDTD",
	0x32: "VerProto",
	0x33: "NumberOfChanges",
	0x34: "MoreData",
	0x35: "Field",
	0x36: "Filter",
	0x37: "Record",
	0x38: "FilterType",
	0x39: "SourceParent",
	0x3A: "TargetParent",
	0x3B: "Move",
	0x3C: "Correlator",
})

// PageMetInf is code page 1, the MetInf DTD.
var PageMetInf = newCodePage(0x01, "syncml:metinf", map[byte]string{
	0x05: "Anchor",
	0x06: "EMI",
	0x07: "Format",
	0x08: "FreeID",
	0x09: "FreeMem",
	0x0A: "Last",
	0x0B: "Mark",
	0x0C: "MaxMsgSize",
	0x0D: "Mem",
	0x0E: "MetInf",
	0x0F: "Next",
	0x10: "NextNonce",
	0x11: "SharedMem",
	0x12: "Size",
	0x13: "Type",
	0x14: "Version",
	0x15: "MaxObjSize",
	0x16: "FieldLevel",
})

// SyncML is the code page set of a SyncML 1.2 document.
var SyncML = CodePages{PageSyncML, PageMetInf}
