// Package propreg implements the MTP object-property registry: static
// per-category descriptor tables and the two lookups the responder's
// GetObjectPropsSupported/GetObjectPropDesc handlers need (spec.md §4.2).
package propreg

import (
	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// GetSet flags whether a property can be written via SetObjectPropValue.
type GetSet uint8

const (
	GetOnly GetSet = iota
	ReadWrite
)

// Form identifies the shape of a descriptor's form-field payload.
type Form uint8

const (
	FormNone Form = iota
	FormRange
	FormEnum
	FormDateTime
	FormFixedArray
	FormRegex
	FormByteArray
	FormLongString
)

// RangeForm carries the min/max/step triple for FormRange descriptors.
type RangeForm struct {
	Min, Max, Step container.Value
}

// EnumForm carries the legal-value set for FormEnum descriptors.
type EnumForm struct {
	Values []container.Value
}

// Descriptor is one property's static metadata (spec.md §4.2).
type Descriptor struct {
	Code      mtptypes.PropCode
	DataType  mtptypes.DataType
	GetSet    GetSet
	Default   container.Value
	GroupCode uint32
	Form      Form
	Range     *RangeForm
	Enum      *EnumForm
}

// Registry holds the static descriptor tables, keyed by format category.
// Enum forms that depend on runtime device capabilities (sample rates,
// channel counts, wave codecs) are populated at construction time from
// the supplied capabilities, mirroring spec.md §4.2's "populated at
// construction from the device-info provider". Width and height carry
// no range form.
type Registry struct {
	common     []Descriptor
	byCategory map[mtptypes.FormatCategory][]Descriptor
}

// Capabilities supplies the device-specific values used to populate
// enum/range forms (e.g. supported sample rates) at registry construction.
type Capabilities struct {
	SampleRates  []uint32
	ChannelCounts []uint16
	WaveCodecs   []uint16
}

// New builds the registry's static tables.
func New(caps Capabilities) *Registry {
	r := &Registry{byCategory: make(map[mtptypes.FormatCategory][]Descriptor)}
	r.common = commonDescriptors()
	r.byCategory[mtptypes.CategoryImage] = imageDescriptors()
	r.byCategory[mtptypes.CategoryAudio] = audioDescriptors(caps)
	r.byCategory[mtptypes.CategoryVideo] = append(audioDescriptors(caps), videoDescriptors()...)
	return r
}

func commonDescriptors() []Descriptor {
	return []Descriptor{
		{Code: mtptypes.PropStorageID, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropObjectFormat, DataType: mtptypes.DataTypeUInt16, GetSet: GetOnly},
		{Code: mtptypes.PropProtectionStatus, DataType: mtptypes.DataTypeUInt16, GetSet: ReadWrite},
		{Code: mtptypes.PropObjectSize, DataType: mtptypes.DataTypeUInt64, GetSet: GetOnly},
		{Code: mtptypes.PropObjectFileName, DataType: mtptypes.DataTypeString, GetSet: ReadWrite, Form: FormNone},
		{Code: mtptypes.PropDateCreated, DataType: mtptypes.DataTypeString, GetSet: GetOnly, Form: FormDateTime},
		{Code: mtptypes.PropDateModified, DataType: mtptypes.DataTypeString, GetSet: GetOnly, Form: FormDateTime},
		{Code: mtptypes.PropParentObject, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropPersistentUID, DataType: mtptypes.DataTypeUInt128, GetSet: GetOnly},
		{Code: mtptypes.PropName, DataType: mtptypes.DataTypeString, GetSet: ReadWrite, Form: FormLongString},
		{Code: mtptypes.PropNonConsumable, DataType: mtptypes.DataTypeUInt8, GetSet: GetOnly},
	}
}

func imageDescriptors() []Descriptor {
	return []Descriptor{
		{Code: mtptypes.PropWidth, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropHeight, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropRepSampleFormat, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropRepSampleWidth, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropRepSampleHeight, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropRepSampleData, DataType: mtptypes.DataTypeUInt8 | mtptypes.DataTypeArrayMask, GetSet: ReadWrite, Form: FormByteArray},
	}
}

func audioDescriptors(caps Capabilities) []Descriptor {
	channels := Descriptor{Code: mtptypes.PropChannels, DataType: mtptypes.DataTypeUInt16, GetSet: GetOnly}
	if len(caps.ChannelCounts) > 0 {
		vals := make([]container.Value, len(caps.ChannelCounts))
		for i, n := range caps.ChannelCounts {
			vals[i] = container.UInt16(n)
		}
		channels.Form = FormEnum
		channels.Enum = &EnumForm{Values: vals}
	}
	descs := []Descriptor{
		{Code: mtptypes.PropArtist, DataType: mtptypes.DataTypeString, GetSet: ReadWrite, Form: FormLongString},
		{Code: mtptypes.PropAlbumName, DataType: mtptypes.DataTypeString, GetSet: ReadWrite, Form: FormLongString},
		{Code: mtptypes.PropTrack, DataType: mtptypes.DataTypeUInt16, GetSet: ReadWrite},
		{Code: mtptypes.PropGenre, DataType: mtptypes.DataTypeString, GetSet: ReadWrite, Form: FormLongString},
		{Code: mtptypes.PropUseCount, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropDuration, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropBitrateType, DataType: mtptypes.DataTypeUInt16, GetSet: GetOnly},
		channels,
		{Code: mtptypes.PropAudioBitrate, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropDRMStatus, DataType: mtptypes.DataTypeUInt16, GetSet: GetOnly},
	}
	sampleRate := Descriptor{Code: mtptypes.PropSampleRate, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly}
	if len(caps.SampleRates) > 0 {
		vals := make([]container.Value, len(caps.SampleRates))
		for i, r := range caps.SampleRates {
			vals[i] = container.UInt32(r)
		}
		sampleRate.Form = FormEnum
		sampleRate.Enum = &EnumForm{Values: vals}
	}
	descs = append(descs, sampleRate)

	waveCodec := Descriptor{Code: mtptypes.PropWaveCodec, DataType: mtptypes.DataTypeUInt16, GetSet: GetOnly}
	if len(caps.WaveCodecs) > 0 {
		vals := make([]container.Value, len(caps.WaveCodecs))
		for i, c := range caps.WaveCodecs {
			vals[i] = container.UInt16(c)
		}
		waveCodec.Form = FormEnum
		waveCodec.Enum = &EnumForm{Values: vals}
	}
	descs = append(descs, waveCodec)
	return descs
}

func videoDescriptors() []Descriptor {
	return []Descriptor{
		{Code: mtptypes.PropVideoFourCC, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropVideoBitrate, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropFramerate, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropWidth, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
		{Code: mtptypes.PropHeight, DataType: mtptypes.DataTypeUInt32, GetSet: GetOnly},
	}
}

// PropsSupported returns the common ∪ category-specific property codes,
// deduplicated (spec.md §4.2).
func (r *Registry) PropsSupported(category mtptypes.FormatCategory) []mtptypes.PropCode {
	seen := make(map[mtptypes.PropCode]bool)
	var out []mtptypes.PropCode
	add := func(d Descriptor) {
		if !seen[d.Code] {
			seen[d.Code] = true
			out = append(out, d.Code)
		}
	}
	for _, d := range r.common {
		add(d)
	}
	for _, d := range r.byCategory[category] {
		add(d)
	}
	return out
}

// PropDesc searches the common table first, then the category-specific
// table (spec.md §4.2), failing with InvalidObjectPropCode if absent.
func (r *Registry) PropDesc(category mtptypes.FormatCategory, code mtptypes.PropCode) (Descriptor, error) {
	for _, d := range r.common {
		if d.Code == code {
			return d, nil
		}
	}
	for _, d := range r.byCategory[category] {
		if d.Code == code {
			return d, nil
		}
	}
	return Descriptor{}, mtperr.New("propreg.PropDesc", mtptypes.InvalidObjectPropCode)
}
