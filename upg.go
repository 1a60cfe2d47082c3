// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

// Magic bytes of the vendor firmware images that ride inside container
// entries. These kinds are classification-only: the images carry no usable
// length field, so they never start a carve, but a payload that opens with
// one of them is reported under its proper kind instead of unknown.

// magicBytesUpgRcMcu is the remote controller MCU upgrade image, the
// shared upgrade magic with a 0x0e discriminator byte.
var magicBytesUpgRcMcu = []Magic{
	{Bytes: []byte{0x34, 0x12, 0xef, 0xbe, 0x0e}},
}

// magicBytesUpgGimbal is the gimbal upgrade image, the shared upgrade
// magic with any other discriminator.
var magicBytesUpgGimbal = []Magic{
	{Bytes: []byte{0x34, 0x12, 0xef, 0xbe}},
}

// magicBytesUpgFcs is the flight control system upgrade image.
var magicBytesUpgFcs = []Magic{
	{Bytes: []byte("UPFS")},
}

// magicBytesUpgBms is the battery management system upgrade image.
var magicBytesUpgBms = []Magic{
	{Bytes: []byte{0x02, 0xaa, 0x55, 0xaa}},
}

// magicBytesUpgEsc is the electronic speed controller upgrade image, four
// zero bytes and a model byte checked separately.
var magicBytesUpgEsc = []Magic{
	{Bytes: []byte{0x00, 0x00, 0x00, 0x00, 0x00}, Mask: []byte{0xff, 0xff, 0xff, 0xff, 0x00}},
}

// magicBytesGpsBin is the GPS receiver firmware blob.
var magicBytesGpsBin = []Magic{
	{Bytes: []byte("@TD1050x")},
}

// isUpgEscModel narrows the all-zero ESC prefix to the known model byte
// range. Four zero bytes alone are everywhere in firmware padding.
func isUpgEscModel(header []byte) bool {
	return len(header) >= 5 && header[4] >= 0x14 && header[4] <= 0x17
}
