// Command lactdump drives the decode engine over a raw packet stream and
// dumps the reconstructed frames, one PPM/PGM file per frame. The stream
// format is deliberately minimal (a big-endian uint32 length prefix per
// packet, zero length marking end of stream) because the real container
// is an external collaborator the core does not depend on.
package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kyledaala/lact"
	"github.com/kyledaala/lact/internal/dsp"
)

var (
	flagWidth   int
	flagHeight  int
	flagChroma  string
	flagOutDir  string
	flagLogFile string
	flagDering  bool
	flagDeblock bool
)

func main() {
	root := &cobra.Command{
		Use:   "lactdump <stream>",
		Short: "Decode a raw lact packet stream and dump frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}
	root.Flags().IntVar(&flagWidth, "width", 0, "picture width in pixels")
	root.Flags().IntVar(&flagHeight, "height", 0, "picture height in pixels")
	root.Flags().StringVar(&flagChroma, "chroma", "420", "chroma layout: mono, 420 or 444")
	root.Flags().StringVar(&flagOutDir, "out", ".", "directory for dumped frames")
	root.Flags().StringVar(&flagLogFile, "log", "", "rotated JSON log file (disabled when empty)")
	root.Flags().BoolVar(&flagDering, "dering", false, "enable the directional dering post-filter")
	root.Flags().BoolVar(&flagDeblock, "deblock", false, "use the deblocking postfilter strategy")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func streamInfo() (*lact.Info, error) {
	if flagWidth <= 0 || flagHeight <= 0 {
		return nil, errors.New("width and height are required (the raw stream carries no header)")
	}
	info := &lact.Info{PicWidth: flagWidth, PicHeight: flagHeight}
	switch flagChroma {
	case "mono":
		info.NPlanes = 1
	case "444":
		info.NPlanes = 3
	case "420":
		info.NPlanes = 3
		info.Planes[1] = lact.PlaneInfo{Xdec: 1, Ydec: 1}
		info.Planes[2] = lact.PlaneInfo{Xdec: 1, Ydec: 1}
	default:
		return nil, fmt.Errorf("unknown chroma layout %q", flagChroma)
	}
	return info, nil
}

func run(path string) error {
	info, err := streamInfo()
	if err != nil {
		return err
	}
	setup := &lact.Setup{
		LogFile:   flagLogFile,
		UseDering: flagDering,
	}
	if flagDeblock {
		setup.Postfilter = lact.PostfilterDeblock
	}
	eng, err := lact.Alloc(info, setup)
	if err != nil {
		return fmt.Errorf("alloc: %w", err)
	}
	defer lact.Free(eng)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var img lact.Image
	frameIdx := 0
	for {
		pkt, err := readPacket(f)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("packet %d: %w", frameIdx, err)
		}
		if err := eng.DecodePacketIn(&img, pkt); err != nil {
			return fmt.Errorf("decode packet %d: %w", frameIdx, err)
		}
		if err := dumpFrame(&img, frameIdx); err != nil {
			return err
		}
		frameIdx++
		if pkt.EndOfStream {
			return nil
		}
	}
}

// readPacket reads one length-prefixed packet; a zero length (or plain
// EOF) ends the stream.
func readPacket(r io.Reader) (*lact.Packet, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, io.EOF
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("truncated packet: %w", err)
	}
	return &lact.Packet{Data: data}, nil
}

func dumpFrame(img *lact.Image, idx int) error {
	if len(img.Planes) == 1 {
		return dumpPGM(img, filepath.Join(flagOutDir, fmt.Sprintf("frame%05d.pgm", idx)))
	}
	return dumpPPM(img, filepath.Join(flagOutDir, fmt.Sprintf("frame%05d.ppm", idx)))
}

func dumpPGM(img *lact.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "P5\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}
	p := img.Planes[0]
	for y := 0; y < img.Height; y++ {
		if _, err := f.Write(p.Data[y*p.Stride : y*p.Stride+img.Width]); err != nil {
			return err
		}
	}
	return nil
}

func dumpPPM(img *lact.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "P6\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}
	yp, up, vp := img.Planes[0], img.Planes[1], img.Planes[2]
	row := make([]byte, img.Width*3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			yy := int(yp.Data[y*yp.Stride+x])
			uu := int(up.Data[(y>>uint(up.Ydec))*up.Stride+(x>>uint(up.Xdec))])
			vv := int(vp.Data[(y>>uint(vp.Ydec))*vp.Stride+(x>>uint(vp.Xdec))])
			dsp.YUVToRGB(yy, uu, vv, row[x*3:])
		}
		if _, err := f.Write(row); err != nil {
			return err
		}
	}
	return nil
}
