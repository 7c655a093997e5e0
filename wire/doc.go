// Package wire implements the host/device message protocol.
//
// Every message, in both directions, is serialized to a compact binary form
// (postcard layout: LEB128 varint enum tags and u32 fields, little-endian
// f32), then COBS byte-stuffed so the body contains no zero byte, then
// terminated by a single 0x00 delimiter:
//
//	host -> device  GetLastMeasurement  00
//	device -> host  NotReady            00
//	device -> host  Measurement         01 varint(id) varint(timestamp) f32le(co2)
//
// Every framed message fits in MaxFrameSize bytes, the payload size of a
// full-speed USB packet.
package wire
