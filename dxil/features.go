package dxil

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// FeatureFlags is the payload of the SFI0 part: optional hardware features
// the shader needs.
type FeatureFlags uint64

const (
	FeatureDoubles FeatureFlags = 1 << iota
	FeatureComputeShadersPlusRawAndStructuredBuffers
	FeatureUAVsAtEveryStage
	Feature64UAVs
	FeatureMinimumPrecision
	Feature11_1DoubleExtensions
	Feature11_1ShaderExtensions
	FeatureLevel9ComparisonFiltering
	FeatureTiledResources
	FeatureStencilRef
	FeatureInnerCoverage
	FeatureTypedUAVLoadAdditionalFormats
	FeatureROVs
	FeatureViewportAndRTArrayIndex
	FeatureWaveOps
	FeatureInt64Ops
	FeatureViewID
	FeatureBarycentrics
	FeatureNativeLowPrecision
	FeatureShadingRate
	FeatureRaytracingTier1_1
	FeatureSamplerFeedback
	FeatureAtomicInt64OnTypedResource
	FeatureAtomicInt64OnGroupShared
	FeatureDerivativesInMeshAndAmpShaders
	FeatureResourceDescriptorHeapIndexing
	FeatureSamplerDescriptorHeapIndexing
	featureReserved
	FeatureAtomicInt64OnHeapResource
)

var featureNames = []struct {
	flag FeatureFlags
	name string
}{
	{FeatureDoubles, "Double-precision floating point"},
	{FeatureComputeShadersPlusRawAndStructuredBuffers, "Raw and Structured buffers"},
	{FeatureUAVsAtEveryStage, "UAVs at every shader stage"},
	{Feature64UAVs, "64 UAV slots"},
	{FeatureMinimumPrecision, "Minimum-precision data types"},
	{Feature11_1DoubleExtensions, "Double-precision extensions for 11.1"},
	{Feature11_1ShaderExtensions, "Shader extensions for 11.1"},
	{FeatureLevel9ComparisonFiltering, "Comparison filtering for feature level 9"},
	{FeatureTiledResources, "Tiled resources"},
	{FeatureStencilRef, "PS Output Stencil Ref"},
	{FeatureInnerCoverage, "PS Inner Coverage"},
	{FeatureTypedUAVLoadAdditionalFormats, "Typed UAV Load Additional Formats"},
	{FeatureROVs, "Raster Ordered UAVs"},
	{FeatureViewportAndRTArrayIndex, "SV_RenderTargetArrayIndex or SV_ViewportArrayIndex from any shader feeding rasterizer"},
	{FeatureWaveOps, "Wave level operations"},
	{FeatureInt64Ops, "64-Bit integer"},
	{FeatureViewID, "View Instancing"},
	{FeatureBarycentrics, "Barycentrics"},
	{FeatureNativeLowPrecision, "Use native low precision"},
	{FeatureShadingRate, "Shading Rate"},
	{FeatureRaytracingTier1_1, "Raytracing tier 1.1 features"},
	{FeatureSamplerFeedback, "Sampler feedback"},
	{FeatureAtomicInt64OnTypedResource, "64-bit Atomics on Typed Resources"},
	{FeatureAtomicInt64OnGroupShared, "64-bit Atomics on Group Shared"},
	{FeatureDerivativesInMeshAndAmpShaders, "Derivatives in mesh and amplification shaders"},
	{FeatureResourceDescriptorHeapIndexing, "Resource descriptor heap indexing"},
	{FeatureSamplerDescriptorHeapIndexing, "Sampler descriptor heap indexing"},
	{FeatureAtomicInt64OnHeapResource, "64-bit Atomics on Heap Resources"},
}

// Names lists the description of every set flag, lowest bit first. Unknown
// bits are ignored.
func (f FeatureFlags) Names() []string {
	var out []string
	for _, n := range featureNames {
		if f&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// ParseFeatureInfo decodes an SFI0 payload.
func ParseFeatureInfo(data []byte) (FeatureFlags, error) {
	if len(data) < 8 {
		return 0, errors.Wrap(ErrInvalidContainer, "feature info part too short")
	}
	return FeatureFlags(binary.LittleEndian.Uint64(data)), nil
}
