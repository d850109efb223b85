package main

import "testing"

func testOpts() Options {
	o := DefaultOptions()
	o.MixingFreq = samplingFreqDefault
	return o
}

func TestSamplerRetrigSilentSampleStaysInactive(t *testing.T) {
	s := newSampler(nil, testOpts())
	s.retrig(nil, 214, 0, 64)
	s.fetchSample()
	if s.getSample() != 0 {
		t.Fatalf("silent sample should produce 0, got %d", s.getSample())
	}
}

func TestSamplerFetchSampleAdvancesPhase(t *testing.T) {
	opts := testOpts()
	data := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	samp := sample{begin: 0, end: 8, loopBegin: 0, loopEnd: 8, finetune: 0, volume: 64}

	s := newSampler(data, opts)
	s.retrig(&samp, minPeriodAmiga, 0, 64)

	before := s.phase
	s.fetchSample()
	if s.phase <= before {
		t.Fatalf("fetchSample() should advance phase forward, before=%d after=%d", before, s.phase)
	}
}

func TestSamplerOutputScaledByVolume(t *testing.T) {
	opts := testOpts()
	data := []byte{100, 0, 0, 0, 0, 0, 0, 0}
	samp := sample{begin: 0, end: 8, loopBegin: 0, loopEnd: 8, finetune: 0, volume: 64}

	s := newSampler(data, opts)
	s.retrig(&samp, minPeriodAmiga, 0, 64)
	s.fetchSample()

	pcm := int16(u8ToS8(data[0]))
	want := pcm * 64
	if s.getSample() != want {
		t.Errorf("getSample() = %d, want pcm*volume = %d", s.getSample(), want)
	}
}

func TestSamplerSetVolumeAppliesAttenuation(t *testing.T) {
	opts := testOpts()
	opts.VolumeAttenuationLog2 = 2
	s := newSampler(nil, opts)
	s.setVolume(64)
	if s.volume != 16 {
		t.Fatalf("setVolume(64) with attenuation=2 should store 16, got %d", s.volume)
	}
}

func TestSamplerShortLoopIsTreatedAsLoopless(t *testing.T) {
	opts := testOpts()
	data := make([]byte, 16)
	// Loop region of length 1 byte is shorter than minLoopLength can ever be,
	// so retrig must fall back to the single-sample "loopless" policy
	// instead of looping a sub-sample region.
	samp := sample{begin: 0, end: 16, loopBegin: 4, loopEnd: 5, finetune: 0, volume: 64}

	s := newSampler(data, opts)
	s.retrig(&samp, minPeriodAmiga, 0, 64)
	if !s.loopless {
		t.Fatalf("a 1-byte loop region should be rejected as too short and marked loopless")
	}
}

func TestSamplerSampleOffsetStartsPastBeginning(t *testing.T) {
	opts := testOpts()
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	samp := sample{begin: 0, end: 512, loopBegin: 0, loopEnd: 512, finetune: 0, volume: 64}

	s := newSampler(data, opts)
	s.retrig(&samp, minPeriodAmiga, 1, 64) // offset unit 1 == 256 bytes
	if s.phase>>16 != 256 {
		t.Fatalf("sample offset 1 should start phase at byte 256, got %d", s.phase>>16)
	}
}

func TestSamplerResetDeactivatesVoice(t *testing.T) {
	opts := testOpts()
	data := make([]byte, 16)
	samp := sample{begin: 0, end: 16, loopBegin: 0, loopEnd: 16, finetune: 0, volume: 64}

	s := newSampler(data, opts)
	s.retrig(&samp, minPeriodAmiga, 0, 64)
	if !s.active.Load() {
		t.Fatalf("retrig should activate the voice")
	}
	s.reset()
	if s.active.Load() {
		t.Fatalf("reset should deactivate the voice")
	}
}
