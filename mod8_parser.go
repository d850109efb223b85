// mod8_parser.go - Protracker song/sample/pattern loading and validation

package main

// patternCell is one channel's slot in one row: a 4-byte packed cell
// decoded into its sample/period/effect/param fields.
type patternCell struct {
	sampleNo uint8
	period   uint16
	effect   uint8
	param    uint8
}

// pattern is one 64-row, 4-channel block of the song.
type pattern struct {
	cells [numRows][numChannels]patternCell
}

// song is the fully parsed, validated module ready for playback. samples
// hold byte offsets into data; patterns hold decoded cells. data is kept
// around because the Sampler reads PCM8 bytes directly out of it.
type song struct {
	name         string
	tag          [4]byte
	orderCount   uint8
	patternCount uint8
	orderList    [numOrders]uint8
	patterns     []pattern
	samples      [numSamples]sample
	data         []byte
}

func decodeCell(b []byte) patternCell {
	return patternCell{
		sampleNo: makeByte(hiNibble(b[0]), hiNibble(b[2])),
		period:   makeWord(loNibble(b[0]), b[1]),
		effect:   loNibble(b[2]),
		param:    b[3],
	}
}

// parseSong validates and decodes a raw MOD file. On failure it reports the
// specific Message code via sink and returns ok=false; the caller must not
// use the returned song in that case.
func parseSong(data []byte, opts Options, sink EventSink) (*song, bool) {
	if len(data) > 65535 {
		sink.OnMessage(MsgSongSizeTooBig, len(data))
		return nil, false
	}
	if len(data) < songHeaderSize {
		sink.OnMessage(MsgUnsupportedFormat)
		return nil, false
	}

	var tag [4]byte
	copy(tag[:], data[formatTagOffset:formatTagOffset+4])
	if !isSupportedTag(tag) {
		sink.OnMessage(MsgUnsupportedFormat)
		return nil, false
	}

	s := &song{tag: tag, data: data}
	s.name = trimCString(data[0:20])

	s.orderCount = data[20+numSamples*sampleHeaderSize]
	if s.orderCount == 0 || s.orderCount > numOrders {
		sink.OnMessage(MsgOutOfRangePattern, int(s.orderCount))
		return nil, false
	}

	orderListOffset := 20 + numSamples*sampleHeaderSize + 2
	copy(s.orderList[:], data[orderListOffset:orderListOffset+numOrders])

	var maxPattern uint8
	for i := 0; i < int(s.orderCount); i++ {
		if s.orderList[i] > maxPattern {
			maxPattern = s.orderList[i]
		}
	}
	s.patternCount = maxPattern + 1

	sampleDataOffset := songHeaderSize + int(s.patternCount)*patternSize
	if sampleDataOffset > len(data) {
		sink.OnMessage(MsgOutOfRangePattern, int(s.patternCount))
		return nil, false
	}

	runningOffset := sampleDataOffset
	for i := 0; i < numSamples; i++ {
		hdr := data[20+i*sampleHeaderSize : 20+(i+1)*sampleHeaderSize]
		samp, ok := parseSampleHeader(hdr, runningOffset, uint8(i+1), sink)
		if !ok {
			return nil, false
		}
		s.samples[i] = samp
		runningOffset = samp.end
	}
	if runningOffset > len(data) {
		sink.OnMessage(MsgOutOfRangeSample, runningOffset-len(data))
		return nil, false
	}

	s.patterns = make([]pattern, s.patternCount)
	for p := 0; p < int(s.patternCount); p++ {
		base := songHeaderSize + p*patternSize
		for row := 0; row < numRows; row++ {
			for ch := 0; ch < numChannels; ch++ {
				off := base + (row*numChannels+ch)*4
				s.patterns[p].cells[row][ch] = decodeCell(data[off : off+4])
			}
		}
	}

	for i := range s.samples {
		sink.OnSampleLoad(uint8(i+1), s.samples[i])
	}
	sink.OnSongLoad(SongInfo{Name: s.name, Tag: s.tag, OrderCount: s.orderCount, PatternCount: s.patternCount})
	return s, true
}

func parseSampleHeader(hdr []byte, dataOffset int, sampleNo uint8, sink EventSink) (sample, bool) {
	length := int(makeWord(hdr[22], hdr[23])) * 2

	finetune := hdr[24] & 0xF
	if finetune > maxFinetune {
		sink.OnMessage(MsgOutOfRangeSampleFinetune, int(sampleNo))
		finetune = 0
	}

	rawVolume := hdr[25]
	volume := rawVolume
	if volume > maxVolume {
		sink.OnMessage(MsgOutOfRangeSampleVolume, int(sampleNo))
		volume = maxVolume
	}

	loopStart := int(makeWord(hdr[26], hdr[27])) * 2
	loopLength := int(makeWord(hdr[28], hdr[29])) * 2

	begin := dataOffset
	end := begin + length
	loopBegin := begin + loopStart
	loopEnd := loopBegin + loopLength

	if loopEnd > end {
		sink.OnMessage(MsgOutOfRangeSampleBoundaries, int(sampleNo))
		loopEnd = end
	}
	if loopBegin > loopEnd {
		sink.OnMessage(MsgOutOfRangeSampleLoopLength, int(sampleNo))
		loopBegin = loopEnd
	}

	return sample{
		begin:     begin,
		end:       end,
		loopBegin: loopBegin,
		loopEnd:   loopEnd,
		finetune:  finetune,
		volume:    int8(volume),
	}, true
}

func trimCString(b []byte) string {
	n := len(b)
	for n > 0 && (b[n-1] == 0 || b[n-1] == ' ') {
		n--
	}
	return string(b[:n])
}
