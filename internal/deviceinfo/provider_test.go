package deviceinfo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/deviceinfo"
)

func testStatic() deviceinfo.Static {
	return deviceinfo.Static{
		Manufacturer:              "mtpd",
		Model:                     "Generic Storage Device",
		DeviceVersion:             "1.0",
		SerialNumber:              "0000000000000000",
		OperationsSupported:       deviceinfo.DefaultOperationsSupported(),
		EventsSupported:           deviceinfo.DefaultEventsSupported(),
		DevicePropertiesSupported: deviceinfo.DefaultDevicePropertiesSupported(),
		CaptureFormats:            deviceinfo.DefaultCaptureFormats(),
		PlaybackFormats:           deviceinfo.DefaultPlaybackFormats(),
	}
}

func TestNewSeedsTemplateOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	p, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "mtpdeviceinfo.xml"))
	require.Equal(t, "mtpd", p.FriendlyName())
	require.Empty(t, p.SyncPartner())
}

func TestNewReusesExistingTemplate(t *testing.T) {
	dir := t.TempDir()
	custom := `<MTPDeviceInfo><DevPropValue id="friendlyname">My Phone</DevPropValue><DevPropValue id="syncpartner">desktop-pc</DevPropValue></MTPDeviceInfo>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mtpdeviceinfo.xml"), []byte(custom), 0o644))

	p, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)
	require.Equal(t, "My Phone", p.FriendlyName())
	require.Equal(t, "desktop-pc", p.SyncPartner())
}

func TestSetFriendlyNamePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	p, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)

	require.NoError(t, p.SetFriendlyName("Living Room Player"))
	require.Equal(t, "Living Room Player", p.FriendlyName())

	reloaded, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)
	require.Equal(t, "Living Room Player", reloaded.FriendlyName())
}

func TestSetSyncPartnerDoesNotDisturbFriendlyName(t *testing.T) {
	dir := t.TempDir()
	p, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)

	require.NoError(t, p.SetSyncPartner("work-laptop"))
	require.Equal(t, "work-laptop", p.SyncPartner())
	require.Equal(t, "mtpd", p.FriendlyName())
}

func TestDatasetEncodesManufacturerAndModel(t *testing.T) {
	dir := t.TempDir()
	p, err := deviceinfo.New(dir, testStatic())
	require.NoError(t, err)

	d := container.NewDecoder(p.Dataset())
	_, err = d.ReadUint16() // StandardVersion
	require.NoError(t, err)
	_, err = d.ReadUint32() // VendorExtensionID
	require.NoError(t, err)
	_, err = d.ReadUint16() // VendorExtensionVersion
	require.NoError(t, err)
	_, err = d.ReadString() // VendorExtensionDesc
	require.NoError(t, err)
	_, err = d.ReadUint16() // FunctionalMode
	require.NoError(t, err)
	for i := 0; i < 5; i++ { // OperationsSupported..PlaybackFormats
		_, err = d.ReadArray16()
		require.NoError(t, err)
	}
	manufacturer, err := d.ReadString()
	require.NoError(t, err)
	require.Equal(t, "mtpd", manufacturer)
	model, err := d.ReadString()
	require.NoError(t, err)
	require.Equal(t, "Generic Storage Device", model)
}
