package shaders

import "github.com/go-gl/mathgl/mgl32"

// SSAOKernel is a fixed hemisphere sample kernel (z >= 0), scaled so samples
// cluster near the origin.
var SSAOKernel = [SSAOKernelSize]mgl32.Vec3{
	{0.0381, 0.0456, 0.0520},
	{-0.0619, 0.0298, 0.0714},
	{0.0725, -0.0532, 0.0339},
	{-0.0288, -0.0811, 0.0476},
	{0.1027, 0.0413, 0.0681},
	{-0.0974, 0.0890, 0.0309},
	{0.0195, 0.1342, 0.0827},
	{-0.1205, -0.0693, 0.1118},
	{0.1633, -0.0911, 0.0712},
	{-0.0412, 0.1874, 0.1366},
	{0.2148, 0.1097, 0.1530},
	{-0.2316, 0.0358, 0.1942},
	{0.0871, -0.2904, 0.1695},
	{-0.2472, -0.2235, 0.2104},
	{0.3391, 0.1518, 0.2977},
	{-0.1129, 0.3862, 0.4120},
}

// PCFJumps is a Poisson disk of shadow map sample offsets in texels.
var PCFJumps = [PCFJumpCount]mgl32.Vec2{
	{-0.9420, -0.3990},
	{0.9456, -0.7689},
	{-0.0942, -0.9294},
	{0.3450, 0.2939},
	{-0.9159, 0.4577},
	{-0.8154, -0.8791},
	{-0.3828, 0.2768},
	{0.9748, 0.7565},
	{0.4432, -0.9751},
	{0.5374, -0.4737},
	{-0.2650, -0.4189},
	{0.7920, 0.1909},
	{-0.2419, 0.9971},
	{-0.8141, 0.9144},
	{0.1998, 0.7864},
	{0.1438, -0.1410},
}
