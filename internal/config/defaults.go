package config

const (
	defaultConfigPath          = "~/.config/lipsync/config.toml"
	defaultAvatarsDir          = "~/.local/share/lipsync/avatars"
	defaultOutputDir           = "~/.local/share/lipsync/output"
	defaultLogDir              = "~/.local/share/lipsync/logs"
	defaultJobsDB              = "~/.local/share/lipsync/jobs.db"
	defaultCheckpointPath      = "~/.local/share/lipsync/models/wav2lip_gan.safetensors"
	defaultGraphPath           = "~/.local/share/lipsync/models/wav2lip.onnx"
	defaultDetectorPath        = "~/.local/share/lipsync/models/face_detector.onnx"
	defaultDevice              = "auto"
	defaultImageSize           = 96
	defaultBatchSize           = 128
	defaultMelStepSize         = 16
	defaultFaceDetBatchSize    = 16
	defaultDetectorParallelism = 2
	defaultFPS                 = 25.0
	defaultExternalCommand     = "python"
	defaultExternalScript      = "inference.py"
	defaultExternalWorkdir     = "~/.local/share/lipsync/Wav2Lip"
	defaultExternalTimeout     = 600
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultPads = [4]int{0, 10, 0, 0}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AvatarsDir: defaultAvatarsDir,
			OutputDir:  defaultOutputDir,
			TempDir:    defaultTempDir(),
			LogDir:     defaultLogDir,
			JobsDB:     defaultJobsDB,
		},
		Model: Model{
			CheckpointPath: defaultCheckpointPath,
			GraphPath:      defaultGraphPath,
			DetectorPath:   defaultDetectorPath,
			Device:         defaultDevice,
			ImageSize:      defaultImageSize,
		},
		Pipeline: Pipeline{
			BatchSize:           defaultBatchSize,
			MelStepSize:         defaultMelStepSize,
			FaceDetBatchSize:    defaultFaceDetBatchSize,
			DetectorParallelism: defaultDetectorParallelism,
			Pads:                append([]int(nil), defaultPads[:]...),
			DefaultFPS:          defaultFPS,
			NativeEnabled:       true,
		},
		External: External{
			Enabled:        true,
			Command:        defaultExternalCommand,
			Script:         defaultExternalScript,
			Workdir:        defaultExternalWorkdir,
			TimeoutSeconds: defaultExternalTimeout,
		},
		FFmpeg: FFmpeg{
			Binary:        "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
