package flowtrace

import (
	"reflect"
	"strconv"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
)

// documentIndent is the indentation of persisted documents.
const documentIndent = "    "

//nolint:gochecknoglobals
var jsonAPI = buildJSONIterAPI()

func buildJSONIterAPI() jsoniter.API {
	config := jsoniter.Config{
		EscapeHTML:             false,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		CaseSensitive:          true,
	}.Froze()
	config.RegisterExtension(&numberExtension{})
	return config
}

// numberExtension decodes JSON numbers into interface{} targets as int64 if
// possible, and float64 otherwise, such that loaded arguments and return
// values keep the integer-ness they were recorded with.
type numberExtension struct {
	jsoniter.DummyExtension
}

func (e *numberExtension) CreateDecoder(typ reflect2.Type) jsoniter.ValDecoder {
	if typ.String() == "interface {}" {
		return numberDecoder{}
	}
	type1 := typ.Type1()
	if typ.Kind() == reflect.Interface && type1 != nil && type1.NumMethod() == 0 {
		return numberDecoder{}
	}
	return nil
}

type numberDecoder struct{}

func (numberDecoder) Decode(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	switch iter.WhatIsNext() { //nolint:exhaustive
	case jsoniter.NumberValue:
		var number jsoniter.Number
		iter.ReadVal(&number)
		i64, err := strconv.ParseInt(string(number), 10, 64)
		if err == nil {
			*(*interface{})(ptr) = i64
			return
		}
		f64, err := strconv.ParseFloat(string(number), 64)
		if err == nil {
			*(*interface{})(ptr) = f64
			return
		}
		iter.ReportError("DecodeNumber", err.Error())
	case jsoniter.ObjectValue:
		// Go through ReadVal, so nested numbers are decoded by numberDecoder too
		m := map[string]interface{}{}
		iter.ReadVal(&m)
		*(*interface{})(ptr) = m
	case jsoniter.ArrayValue:
		s := []interface{}{}
		iter.ReadVal(&s)
		*(*interface{})(ptr) = s
	default:
		*(*interface{})(ptr) = iter.Read()
	}
}

// frameJSON is the wire format of a Frame.
type frameJSON struct {
	Function    string                 `json:"function"`
	Depth       int                    `json:"depth"`
	Args        []interface{}          `json:"args"`
	Kwargs      map[string]interface{} `json:"kwargs"`
	Timestamp   Timestamp              `json:"timestamp"`
	Outcome     Outcome                `json:"outcome,omitempty"`
	ReturnValue *interface{}           `json:"return_value,omitempty"`
	Exception   *exceptionJSON         `json:"exception,omitempty"`
	ElapsedTime *Seconds               `json:"elapsed_time,omitempty"`
	LogMessages []logMessageJSON       `json:"log_messages,omitempty"`
}

type exceptionJSON struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

type logMessageJSON struct {
	Message   string                 `json:"message"`
	Level     string                 `json:"level"`
	Timestamp Timestamp              `json:"timestamp"`
	Values    map[string]interface{} `json:"values,omitempty"`
}

type documentJSON struct {
	FlowDuration Seconds     `json:"flow_duration"`
	Frames       []frameJSON `json:"frames"`
}

// MarshalDocument encodes doc the way it is persisted: indented by four
// spaces, with map keys sorted.
//
// The return value of a frame is only included if the frame was successful,
// and the exception only if it failed.
func MarshalDocument(doc *Document) ([]byte, error) {
	out := documentJSON{
		FlowDuration: doc.FlowDuration,
		Frames:       make([]frameJSON, 0, len(doc.Frames)),
	}
	for i := range doc.Frames {
		out.Frames = append(out.Frames, toFrameJSON(&doc.Frames[i]))
	}
	return jsonAPI.MarshalIndent(&out, "", documentIndent)
}

// UnmarshalDocument decodes the output of MarshalDocument.
func UnmarshalDocument(data []byte) (*Document, error) {
	var in documentJSON
	if err := jsonAPI.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	doc := &Document{
		FlowDuration: in.FlowDuration,
		Frames:       make([]Frame, 0, len(in.Frames)),
	}
	for i := range in.Frames {
		doc.Frames = append(doc.Frames, fromFrameJSON(&in.Frames[i]))
	}
	return doc, nil
}

func toFrameJSON(f *Frame) frameJSON {
	out := frameJSON{
		Function:    f.Function,
		Depth:       f.Depth,
		Args:        f.Args,
		Kwargs:      f.Kwargs,
		Timestamp:   f.Timestamp,
		Outcome:     f.Outcome,
		ElapsedTime: f.ElapsedTime,
	}
	if out.Args == nil {
		out.Args = []interface{}{}
	}
	if out.Kwargs == nil {
		out.Kwargs = map[string]interface{}{}
	}
	switch f.Outcome {
	case OutcomeSuccessful:
		ret := f.ReturnValue
		out.ReturnValue = &ret
	case OutcomeError:
		exc := f.Exception
		if exc == nil {
			exc = &Exception{}
		}
		out.Exception = &exceptionJSON{Type: exc.Type, Message: exc.Message, Traceback: exc.Traceback}
	}
	for _, m := range f.LogMessages {
		out.LogMessages = append(out.LogMessages, logMessageJSON(m))
	}
	return out
}

func fromFrameJSON(in *frameJSON) Frame {
	f := Frame{
		Function:    in.Function,
		Depth:       in.Depth,
		Args:        in.Args,
		Kwargs:      in.Kwargs,
		Timestamp:   in.Timestamp,
		Outcome:     in.Outcome,
		ElapsedTime: in.ElapsedTime,
	}
	if in.ReturnValue != nil {
		f.ReturnValue = *in.ReturnValue
	}
	if in.Exception != nil {
		f.Exception = &Exception{Type: in.Exception.Type, Message: in.Exception.Message, Traceback: in.Exception.Traceback}
	}
	for _, m := range in.LogMessages {
		f.LogMessages = append(f.LogMessages, LogMessage(m))
	}
	return f
}
