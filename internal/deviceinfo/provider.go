package deviceinfo

import (
	_ "embed"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed template.xml
var defaultTemplate []byte

const (
	xmlFileName    = "mtpdeviceinfo.xml"
	propFriendlyName = "friendlyname"
	propSyncPartner  = "syncpartner"
)

type devPropValue struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type document struct {
	XMLName xml.Name       `xml:"MTPDeviceInfo"`
	Props   []devPropValue `xml:"DevPropValue"`
}

// Provider holds the mutable, persisted device properties (FriendlyName,
// SyncPartner) alongside the static dataset, mirroring the original's
// DeviceInfo/XMLHandler split between device-specific capabilities and
// user-settable identity strings.
type Provider struct {
	static  Static
	xmlPath string

	mu  sync.RWMutex
	doc document
}

// New copies the XML template into stateDir on first use (if no cached
// copy exists yet) and loads it.
func New(stateDir string, static Static) (*Provider, error) {
	p := &Provider{static: static, xmlPath: filepath.Join(stateDir, xmlFileName)}
	if _, err := os.Stat(p.xmlPath); os.IsNotExist(err) {
		if err := os.WriteFile(p.xmlPath, defaultTemplate, 0o644); err != nil {
			return nil, fmt.Errorf("deviceinfo: seed xml template: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("deviceinfo: stat xml template: %w", err)
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) load() error {
	data, err := os.ReadFile(p.xmlPath)
	if err != nil {
		return fmt.Errorf("deviceinfo: read xml template: %w", err)
	}
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("deviceinfo: parse xml template: %w", err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

// Dataset returns the static GetDeviceInfo dataset bytes.
func (p *Provider) Dataset() []byte { return p.static.Encode() }

// FriendlyName returns the current device friendly name (DevicePropCode
// 0xD402).
func (p *Provider) FriendlyName() string { return p.devProp(propFriendlyName) }

// SyncPartner returns the current sync partner name (DevicePropCode
// 0xD401).
func (p *Provider) SyncPartner() string { return p.devProp(propSyncPartner) }

// SetFriendlyName updates the friendly name and rewrites the cached XML
// template in place (spec.md §4.6.6: triggers a DevicePropChanged event).
func (p *Provider) SetFriendlyName(name string) error { return p.setDevProp(propFriendlyName, name) }

// SetSyncPartner updates the sync partner name and rewrites the cached XML
// template in place.
func (p *Provider) SetSyncPartner(name string) error { return p.setDevProp(propSyncPartner, name) }

func (p *Provider) devProp(id string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, dp := range p.doc.Props {
		if dp.ID == id {
			return strings.TrimSpace(dp.Value)
		}
	}
	return ""
}

func (p *Provider) setDevProp(id, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	for i := range p.doc.Props {
		if p.doc.Props[i].ID == id {
			p.doc.Props[i].Value = value
			found = true
			break
		}
	}
	if !found {
		p.doc.Props = append(p.doc.Props, devPropValue{ID: id, Value: value})
	}

	data, err := xml.MarshalIndent(p.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("deviceinfo: marshal xml template: %w", err)
	}
	if err := os.WriteFile(p.xmlPath, data, 0o644); err != nil {
		return fmt.Errorf("deviceinfo: write xml template: %w", err)
	}
	return nil
}
