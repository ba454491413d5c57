package seq2seq

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Files making up an artifact directory.
const (
	WeightsFile     = "model.safetensors"
	SourceVocabFile = "vocab_src.json"
	TargetVocabFile = "vocab_tgt.json"
)

const (
	metadataKey   = "__metadata__"
	dtypeF64      = "F64"
	maxHeaderSize = 100 * 1024 * 1024
)

// Metadata is stored in the weights file header and describes what the
// weights were trained against.
type Metadata struct {
	Language           string
	Config             Config
	SrcVocabSize       int
	TgtVocabSize       int
	SrcFingerprint     string
	TgtFingerprint     string
	RunID              string
	CreatedAt          time.Time
	ParameterCount     int
	BestValidationLoss float64
}

type tensorInfo struct {
	Dtype       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// ArtifactDir returns the directory holding the model for language.
func ArtifactDir(modelsDir, language string) string {
	return filepath.Join(modelsDir, language)
}

func (md *Metadata) encode() (map[string]string, error) {
	cfg, err := json.Marshal(md.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return map[string]string{
		"format":               "kumajala-seq2seq",
		"language":             md.Language,
		"config":               string(cfg),
		"src_vocab_size":       strconv.Itoa(md.SrcVocabSize),
		"tgt_vocab_size":       strconv.Itoa(md.TgtVocabSize),
		"src_fingerprint":      md.SrcFingerprint,
		"tgt_fingerprint":      md.TgtFingerprint,
		"run_id":               md.RunID,
		"created_at":           md.CreatedAt.UTC().Format(time.RFC3339),
		"parameter_count":      strconv.Itoa(md.ParameterCount),
		"best_validation_loss": strconv.FormatFloat(md.BestValidationLoss, 'g', -1, 64),
	}, nil
}

func decodeMetadata(raw map[string]string) (*Metadata, error) {
	md := &Metadata{
		Language:       raw["language"],
		SrcFingerprint: raw["src_fingerprint"],
		TgtFingerprint: raw["tgt_fingerprint"],
		RunID:          raw["run_id"],
	}
	if err := json.Unmarshal([]byte(raw["config"]), &md.Config); err != nil {
		return nil, errors.Wrap(err, "failed to parse model config")
	}
	var err error
	if md.SrcVocabSize, err = strconv.Atoi(raw["src_vocab_size"]); err != nil {
		return nil, errors.Wrap(err, "invalid src_vocab_size")
	}
	if md.TgtVocabSize, err = strconv.Atoi(raw["tgt_vocab_size"]); err != nil {
		return nil, errors.Wrap(err, "invalid tgt_vocab_size")
	}
	if v, ok := raw["parameter_count"]; ok {
		md.ParameterCount, _ = strconv.Atoi(v)
	}
	if v, ok := raw["best_validation_loss"]; ok {
		md.BestValidationLoss, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := raw["created_at"]; ok {
		md.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return md, nil
}

// SaveArtifact writes the translator's weights and both vocabularies into dir.
// The weights file is written to a temporary file first and renamed into
// place.
func SaveArtifact(dir string, t *Translator, md Metadata) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	md.Language = t.Language()
	md.Config = t.Model.Config
	md.SrcVocabSize = t.Source.Size()
	md.TgtVocabSize = t.Target.Size()
	md.SrcFingerprint = t.Source.Fingerprint()
	md.TgtFingerprint = t.Target.Fingerprint()
	md.ParameterCount = t.Model.Params.Count()
	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now()
	}

	if err := writeWeights(filepath.Join(dir, WeightsFile), t.Model, &md); err != nil {
		return err
	}
	if err := t.Source.Save(filepath.Join(dir, SourceVocabFile)); err != nil {
		return errors.Wrap(err, "failed to save source vocabulary")
	}
	if err := t.Target.Save(filepath.Join(dir, TargetVocabFile)); err != nil {
		return errors.Wrap(err, "failed to save target vocabulary")
	}
	return nil
}

func writeWeights(path string, m *Model, md *Metadata) error {
	meta, err := md.encode()
	if err != nil {
		return err
	}

	header := map[string]any{metadataKey: meta}
	var offset int64
	for _, p := range m.Params.All() {
		rows, cols := p.Dims()
		size := int64(p.Size()) * 8
		header[p.Name] = tensorInfo{
			Dtype:       dtypeF64,
			Shape:       []int{rows, cols},
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to encode safetensors header")
	}
	// Pad the header with spaces so tensor data starts 8-byte aligned.
	for len(headerBytes)%8 != 0 {
		headerBytes = append(headerBytes, ' ')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".weights-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary weights file")
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := w.Write(headerBytes); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write header")
	}
	var buf [8]byte
	for _, p := range m.Params.All() {
		for _, v := range p.Data() {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			if _, err := w.Write(buf[:]); err != nil {
				tmp.Close()
				return errors.Wrapf(err, "failed to write tensor %s", p.Name)
			}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to flush weights")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close weights file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to move weights into place")
}

// weightsFile is an open, memory-mapped safetensors file.
type weightsFile struct {
	reader     *mmap.ReaderAt
	dataOffset int64
	tensors    map[string]tensorInfo
	metadata   map[string]string
}

func openWeights(path string) (*weightsFile, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mmap %s", path)
	}

	var sizeBuf [8]byte
	if _, err := reader.ReadAt(sizeBuf[:], 0); err != nil {
		reader.Close()
		return nil, errors.Wrap(err, "failed to read header size")
	}
	headerSize := binary.LittleEndian.Uint64(sizeBuf[:])
	if headerSize > maxHeaderSize || int64(headerSize)+8 > int64(reader.Len()) {
		reader.Close()
		return nil, errors.Errorf("invalid header size %d in %s", headerSize, path)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := reader.ReadAt(headerBytes, 8); err != nil {
		reader.Close()
		return nil, errors.Wrap(err, "failed to read header JSON")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		reader.Close()
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	wf := &weightsFile{
		reader:     reader,
		dataOffset: int64(8 + headerSize),
		tensors:    make(map[string]tensorInfo),
		metadata:   make(map[string]string),
	}
	for key, value := range raw {
		if key == metadataKey {
			if err := json.Unmarshal(value, &wf.metadata); err != nil {
				reader.Close()
				return nil, errors.Wrap(err, "failed to parse __metadata__")
			}
			continue
		}
		var ti tensorInfo
		if err := json.Unmarshal(value, &ti); err != nil {
			reader.Close()
			return nil, errors.Wrapf(err, "failed to parse tensor metadata for %s", key)
		}
		wf.tensors[key] = ti
	}
	return wf, nil
}

func (wf *weightsFile) Close() error {
	return wf.reader.Close()
}

// readInto copies the tensor named name into dst.
func (wf *weightsFile) readInto(name string, rows, cols int, dst []float64) error {
	ti, ok := wf.tensors[name]
	if !ok {
		return errors.Errorf("tensor %s not found", name)
	}
	if ti.Dtype != dtypeF64 {
		return errors.Errorf("tensor %s has dtype %s, want %s", name, ti.Dtype, dtypeF64)
	}
	if len(ti.Shape) != 2 || ti.Shape[0] != rows || ti.Shape[1] != cols {
		return errors.Errorf("tensor %s has shape %v, want [%d %d]", name, ti.Shape, rows, cols)
	}
	size := ti.DataOffsets[1] - ti.DataOffsets[0]
	if size != int64(len(dst))*8 {
		return errors.Errorf("tensor %s spans %d bytes, want %d", name, size, len(dst)*8)
	}

	data := make([]byte, size)
	if _, err := wf.reader.ReadAt(data, wf.dataOffset+ti.DataOffsets[0]); err != nil {
		return errors.Wrapf(err, "failed to read tensor %s", name)
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return nil
}

// ReadMetadata returns the metadata of the artifact in dir without loading
// any weights.
func ReadMetadata(dir string) (*Metadata, error) {
	wf, err := openWeights(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, err
	}
	defer wf.Close()
	return decodeMetadata(wf.metadata)
}

// LoadArtifact loads the translator stored in dir for language. A missing
// directory or weights file yields *ModelUnavailableError; vocabularies that
// differ from the ones the weights were trained with yield
// *VocabularyMismatchError.
func LoadArtifact(dir, language string, opts GenerateOptions) (*Translator, error) {
	weightsPath := filepath.Join(dir, WeightsFile)
	if _, err := os.Stat(weightsPath); err != nil {
		return nil, &ModelUnavailableError{Language: language, Path: dir, Err: err}
	}

	wf, err := openWeights(weightsPath)
	if err != nil {
		return nil, err
	}
	defer wf.Close()

	md, err := decodeMetadata(wf.metadata)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", dir)
	}

	src, err := vocab.Load(filepath.Join(dir, SourceVocabFile))
	if err != nil {
		return nil, &ModelUnavailableError{Language: language, Path: dir, Err: err}
	}
	tgt, err := vocab.Load(filepath.Join(dir, TargetVocabFile))
	if err != nil {
		return nil, &ModelUnavailableError{Language: language, Path: dir, Err: err}
	}
	if err := checkVocabulary("source", md.SrcVocabSize, md.SrcFingerprint, src); err != nil {
		return nil, err
	}
	if err := checkVocabulary("target", md.TgtVocabSize, md.TgtFingerprint, tgt); err != nil {
		return nil, err
	}

	m, err := New(md.Config, md.SrcVocabSize, md.TgtVocabSize, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", dir)
	}
	for _, p := range m.Params.All() {
		rows, cols := p.Dims()
		if err := wf.readInto(p.Name, rows, cols, p.Data()); err != nil {
			return nil, errors.Wrapf(err, "artifact %s", dir)
		}
	}
	if len(wf.tensors) != len(m.Params.All()) {
		return nil, errors.Errorf("artifact %s holds %d tensors, model has %d", dir, len(wf.tensors), len(m.Params.All()))
	}

	return NewTranslator(m, src, tgt, opts)
}

func checkVocabulary(side string, size int, fingerprint string, v *vocab.Vocabulary) error {
	if v.Size() != size {
		return &VocabularyMismatchError{Side: side, Expected: sizeString(size), Actual: sizeString(v.Size())}
	}
	if fingerprint != "" && v.Fingerprint() != fingerprint {
		return &VocabularyMismatchError{Side: side, Expected: fingerprint, Actual: v.Fingerprint()}
	}
	return nil
}

func sizeString(n int) string {
	return strconv.Itoa(n) + " tokens"
}
