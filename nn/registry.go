package nn

import (
	"fmt"
	"reflect"
	"sort"
)

// layerInitRegistry maps config-level layer names to their init functions.
var layerInitRegistry = map[string]interface{}{
	"dense":     InitDenseLayer,
	"conv2d":    InitConv2DLayer,
	"lstm":      InitLSTMLayer,
	"attention": InitMultiHeadAttentionLayer,
	"softmax":   InitSoftmaxLayer,
	"graphconv": InitGraphConvLayer,
}

// GetLayerInitFunction returns a layer init function by its config-level
// name.
func GetLayerInitFunction(name string) (interface{}, bool) {
	fn, ok := layerInitRegistry[name]
	return fn, ok
}

// LayerNames lists the registered layer names, sorted.
func LayerNames() []string {
	names := make([]string, 0, len(layerInitRegistry))
	for name := range layerInitRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallLayerInit builds a layer by config-level name with the provided
// arguments. Numeric arguments are converted to the init function's
// parameter types, so plain ints from a configuration mapping work for
// ActivationType and float32 parameters.
func CallLayerInit(name string, args ...interface{}) (LayerConfig, error) {
	fn, ok := layerInitRegistry[name]
	if !ok {
		return LayerConfig{}, fmt.Errorf("unknown layer %q (known: %v)", name, LayerNames())
	}

	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()

	if len(args) != fnType.NumIn() {
		return LayerConfig{}, fmt.Errorf("layer %q expects %d arguments, got %d", name, fnType.NumIn(), len(args))
	}

	inputs := make([]reflect.Value, len(args))
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		want := fnType.In(i)
		if !av.Type().AssignableTo(want) {
			if !av.Type().ConvertibleTo(want) {
				return LayerConfig{}, fmt.Errorf("layer %q argument %d: cannot use %T as %s", name, i, arg, want)
			}
			av = av.Convert(want)
		}
		inputs[i] = av
	}

	results := fnValue.Call(inputs)
	config, ok := results[0].Interface().(LayerConfig)
	if !ok {
		return LayerConfig{}, fmt.Errorf("layer %q init did not return a LayerConfig", name)
	}
	return config, nil
}
