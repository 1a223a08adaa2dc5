package face

import "image/color"

// Part is one connected feature of the face mesh drawn in a single color.
type Part struct {
	Name  string
	Color color.RGBA
	// Paths are vertex index polylines; consecutive indices are joined.
	Paths [][]int
}

// Topology lists the mesh features drawn into landmark images, using the
// 478-vertex face mesh layout (468 surface vertices plus 10 iris vertices).
var Topology = []Part{
	{
		Name:  "oval",
		Color: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Paths: [][]int{{
			10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288, 397, 365, 379, 378,
			400, 377, 152, 148, 176, 149, 150, 136, 172, 58, 132, 93, 234, 127, 162, 21,
			54, 103, 67, 109, 10,
		}},
	},
	{
		Name:  "left_eyebrow",
		Color: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		Paths: [][]int{{276, 283, 282, 295, 285}, {300, 293, 334, 296, 336}},
	},
	{
		Name:  "right_eyebrow",
		Color: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		Paths: [][]int{{46, 53, 52, 65, 55}, {70, 63, 105, 66, 107}},
	},
	{
		Name:  "left_eye",
		Color: color.RGBA{R: 180, G: 200, B: 10, A: 255},
		Paths: [][]int{
			{263, 249, 390, 373, 374, 380, 381, 382, 362},
			{263, 466, 388, 387, 386, 385, 384, 398, 362},
		},
	},
	{
		Name:  "right_eye",
		Color: color.RGBA{R: 10, G: 200, B: 180, A: 255},
		Paths: [][]int{
			{33, 7, 163, 144, 145, 153, 154, 155, 133},
			{33, 246, 161, 160, 159, 158, 157, 173, 133},
		},
	},
	{
		Name:  "left_iris",
		Color: color.RGBA{R: 250, G: 200, B: 10, A: 255},
		Paths: [][]int{{474, 475, 476, 477, 474}},
	},
	{
		Name:  "right_iris",
		Color: color.RGBA{R: 10, G: 200, B: 250, A: 255},
		Paths: [][]int{{469, 470, 471, 472, 469}},
	},
	{
		Name:  "outer_lips",
		Color: color.RGBA{R: 255, G: 0, B: 0, A: 255},
		Paths: [][]int{
			{61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291},
			{61, 185, 40, 39, 37, 0, 267, 269, 270, 409, 291},
		},
	},
	{
		Name:  "inner_lips",
		Color: color.RGBA{R: 255, G: 0, B: 255, A: 255},
		Paths: [][]int{
			{78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308},
			{78, 191, 80, 81, 82, 13, 312, 311, 310, 415, 308},
		},
	},
}
