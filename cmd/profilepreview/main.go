// Accumulation profile preview tool - interactive view of one surface with sliders.
//
// Usage: go run ./cmd/profilepreview
package main

import (
	"fmt"
	"image/color"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"

	"github.com/pthm-cable/snowdrift/canvas"
	"github.com/pthm-cable/snowdrift/renderer"
	"github.com/pthm-cable/snowdrift/surface"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewWidth = 620
	previewTop   = 60
	panelWidth   = windowWidth - previewWidth - 30
)

// ProfileParams holds the surface parameters being previewed.
type ProfileParams struct {
	Width int
	Depth int
	Floor bool
	Seed  int64
	Burst int // deposits per burst
}

func defaultParams() ProfileParams {
	return ProfileParams{Width: 300, Depth: 30, Seed: 12345, Burst: 200}
}

// preview owns the field being shown and its GPU copy.
type preview struct {
	params  ProfileParams
	rng     *rand.Rand
	field   *surface.Field
	raster  *canvas.Raster
	texture rl.Texture2D
	loaded  bool
}

func (p *preview) rebuild() {
	p.rng = rand.New(rand.NewSource(p.params.Seed))
	f, err := surface.New(p.params.Width, p.params.Depth, p.params.Floor, p.rng)
	if err != nil {
		fmt.Println("surface:", err)
		return
	}
	p.field = f
	p.raster = canvas.NewRaster(p.params.Width, max(p.params.Depth, 1))
	if p.loaded {
		rl.UnloadTexture(p.texture)
	}
	img := rl.GenImageColor(p.raster.Width(), p.raster.Height(), rl.Blank)
	p.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	p.loaded = true
	p.repaint()
}

// repaint draws the silhouette and the target line into the texture.
func (p *preview) repaint() {
	if p.field == nil {
		return
	}
	p.raster.Clear()
	renderer.PaintField(p.raster, p.field, color.RGBA{R: 240, G: 248, B: 255, A: 255})

	target := color.RGBA{R: 255, G: 80, B: 80, A: 255}
	for i, m := range p.field.Max {
		p.raster.Set(i, p.raster.Height()-1-m, target)
	}

	img := p.raster.Image()
	pixels := make([]color.RGBA, len(img.Pix)/4)
	for i := range pixels {
		pixels[i] = color.RGBA{R: img.Pix[4*i], G: img.Pix[4*i+1], B: img.Pix[4*i+2], A: img.Pix[4*i+3]}
	}
	rl.UpdateTexture(p.texture, pixels)
}

// burst drops the configured number of particles at random columns.
func (p *preview) burst() {
	for i := 0; i < p.params.Burst; i++ {
		w := 2 + p.rng.Intn(6)
		p.field.Deposit(p.rng.Intn(p.field.Width)-w/2, w)
	}
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Accumulation Profile Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	p := &preview{params: defaultParams()}
	p.rebuild()
	defer func() {
		if p.loaded {
			rl.UnloadTexture(p.texture)
		}
	}()

	needsRebuild := false
	for !rl.WindowShouldClose() {
		if needsRebuild {
			p.rebuild()
			needsRebuild = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.DarkBlue)

		// Preview, scaled to fit the left column
		scale := float32(previewWidth) / float32(p.params.Width)
		if s := float32(windowHeight-previewTop-80) / float32(max(p.params.Depth, 1)); s < scale {
			scale = s
		}
		rl.DrawTextureEx(p.texture, rl.Vector2{X: 10, Y: previewTop}, 0, scale, rl.White)
		rl.DrawRectangleLines(10, previewTop,
			int32(float32(p.params.Width)*scale), int32(float32(max(p.params.Depth, 1))*scale), rl.LightGray)

		if p.field != nil {
			rl.DrawText(fmt.Sprintf("Fill: %.1f%%", 100*p.field.FillRatio()), 15, 15, 20, rl.RayWhite)
		}

		panelX := float32(previewWidth + 20)
		panelY := float32(10)

		rl.DrawText("Surface Parameters", int32(panelX), int32(panelY), 20, rl.RayWhite)
		panelY += 35

		// Width slider
		rl.DrawText("Width (columns)", int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 18
		newWidth := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"3", "1000",
			float32(p.params.Width), float32(surface.MinWidth), 1000,
		)
		rl.DrawText(fmt.Sprintf("%d", p.params.Width), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.RayWhite)
		if int(newWidth) != p.params.Width {
			p.params.Width = int(newWidth)
			needsRebuild = true
		}
		panelY += 35

		// Depth slider
		rl.DrawText("Depth (max_window_depth)", int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 18
		newDepth := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "200",
			float32(p.params.Depth), 0, 200,
		)
		rl.DrawText(fmt.Sprintf("%d", p.params.Depth), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.RayWhite)
		if int(newDepth) != p.params.Depth {
			p.params.Depth = int(newDepth)
			needsRebuild = true
		}
		panelY += 35

		// Burst slider
		rl.DrawText("Deposits per burst", int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 18
		p.params.Burst = int(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"1", "2000",
			float32(p.params.Burst), 1, 2000,
		))
		rl.DrawText(fmt.Sprintf("%d", p.params.Burst), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.RayWhite)
		panelY += 35

		// Seed slider
		rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 18
		newSeed := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "99999",
			float32(p.params.Seed), 0, 99999,
		)
		rl.DrawText(fmt.Sprintf("%d", p.params.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.RayWhite)
		if int64(newSeed) != p.params.Seed {
			p.params.Seed = int64(newSeed)
			needsRebuild = true
		}
		panelY += 35

		floor := gui.CheckBox(rl.Rectangle{X: panelX, Y: panelY, Width: 20, Height: 20}, "Desktop floor", p.params.Floor)
		if floor != p.params.Floor {
			p.params.Floor = floor
			needsRebuild = true
		}
		panelY += 40

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.Gray)
		panelY += 15

		// Buttons
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Deposit") && p.field != nil {
			p.burst()
			p.repaint()
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Relax") && p.field != nil {
			p.field.Relax()
			p.repaint()
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reshape") && p.field != nil {
			p.field.Reshape(p.rng)
			p.repaint()
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Clear") && p.field != nil {
			p.field.Clear()
			p.repaint()
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			p.params.Seed = int64(rl.GetRandomValue(0, 99999))
			needsRebuild = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			p.params = defaultParams()
			needsRebuild = true
		}
		panelY += 55

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.RayWhite)
		panelY += 25
		for _, line := range yamlLines(p.params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.LightGray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.Gray)
		if rl.IsKeyPressed(rl.KeyC) {
			text := ""
			for _, line := range yamlLines(p.params) {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

func yamlLines(p ProfileParams) []string {
	key := "max_window_depth"
	if p.Floor {
		key = "max_desktop_depth"
	}
	return []string{
		"fallen:",
		fmt.Sprintf("  %s: %d", key, p.Depth),
	}
}
